package token

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
)

// MemoryStableToken is a deterministic in-memory StableToken, used in tests
// and the local/dev deployment profile.
type MemoryStableToken struct {
	mu       sync.Mutex
	balances map[uuid.UUID]*big.Int
	custody  *big.Int
	supply   *big.Int
}

func NewMemoryStableToken() *MemoryStableToken {
	return &MemoryStableToken{
		balances: make(map[uuid.UUID]*big.Int),
		custody:  new(big.Int),
		supply:   new(big.Int),
	}
}

func (t *MemoryStableToken) balance(holder uuid.UUID) *big.Int {
	b, ok := t.balances[holder]
	if !ok {
		b = new(big.Int)
		t.balances[holder] = b
	}
	return b
}

func (t *MemoryStableToken) Mint(to uuid.UUID, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.balance(to).Add(t.balance(to), amount)
	t.supply.Add(t.supply, amount)
	return nil
}

func (t *MemoryStableToken) TransferFrom(from uuid.UUID, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := t.balance(from)
	if b.Cmp(amount) < 0 {
		return fmt.Errorf("%w: holder %s has %s, need %s", ErrInsufficientFunds, from, b, amount)
	}
	b.Sub(b, amount)
	t.custody.Add(t.custody, amount)
	return nil
}

func (t *MemoryStableToken) Burn(amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.custody.Cmp(amount) < 0 {
		return fmt.Errorf("%w: custody has %s, burn %s", ErrInsufficientFunds, t.custody, amount)
	}
	t.custody.Sub(t.custody, amount)
	t.supply.Sub(t.supply, amount)
	return nil
}

// BalanceOf returns a copy of a holder's balance.
func (t *MemoryStableToken) BalanceOf(holder uuid.UUID) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.balance(holder))
}

// TotalSupply returns a copy of the outstanding supply.
func (t *MemoryStableToken) TotalSupply() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.supply)
}

// MemoryBank is a deterministic in-memory CollateralBank.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[string]map[uuid.UUID]*big.Int
	custody  map[string]*big.Int
}

func NewMemoryBank() *MemoryBank {
	return &MemoryBank{
		balances: make(map[string]map[uuid.UUID]*big.Int),
		custody:  make(map[string]*big.Int),
	}
}

func (b *MemoryBank) balance(asset string, holder uuid.UUID) *big.Int {
	holders, ok := b.balances[asset]
	if !ok {
		holders = make(map[uuid.UUID]*big.Int)
		b.balances[asset] = holders
	}
	bal, ok := holders[holder]
	if !ok {
		bal = new(big.Int)
		holders[holder] = bal
	}
	return bal
}

func (b *MemoryBank) custodyOf(asset string) *big.Int {
	c, ok := b.custody[asset]
	if !ok {
		c = new(big.Int)
		b.custody[asset] = c
	}
	return c
}

// Fund credits a holder with amount of asset out of thin air. Test and
// bootstrap helper; not part of the CollateralBank contract.
func (b *MemoryBank) Fund(asset string, holder uuid.UUID, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balance(asset, holder).Add(b.balance(asset, holder), amount)
}

func (b *MemoryBank) TransferFrom(asset string, from uuid.UUID, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal := b.balance(asset, from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holder %s has %s, need %s", ErrInsufficientFunds, asset, from, bal, amount)
	}
	bal.Sub(bal, amount)
	b.custodyOf(asset).Add(b.custodyOf(asset), amount)
	return nil
}

func (b *MemoryBank) Transfer(asset string, to uuid.UUID, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.custodyOf(asset)
	if c.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s custody has %s, need %s", ErrInsufficientFunds, asset, c, amount)
	}
	c.Sub(c, amount)
	b.balance(asset, to).Add(b.balance(asset, to), amount)
	return nil
}

// BalanceOf returns a copy of a holder's balance for one asset.
func (b *MemoryBank) BalanceOf(asset string, holder uuid.UUID) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.balance(asset, holder))
}
