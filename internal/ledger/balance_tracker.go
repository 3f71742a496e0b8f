package ledger

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// BalanceTracker maintains in-memory account balances.
// It never hands out mutable references: every query returns a copy.
type BalanceTracker struct {
	balances map[AccountKey]*big.Int
}

func NewBalanceTracker() *BalanceTracker {
	return &BalanceTracker{
		balances: make(map[AccountKey]*big.Int),
	}
}

func (bt *BalanceTracker) entry(key AccountKey) *big.Int {
	b, ok := bt.balances[key]
	if !ok {
		b = new(big.Int)
		bt.balances[key] = b
	}
	return b
}

// ApplyJournal applies a single journal entry to balances
func (bt *BalanceTracker) ApplyJournal(j Journal) {
	bt.entry(j.DebitAccount).Add(bt.entry(j.DebitAccount), j.Amount)
	bt.entry(j.CreditAccount).Sub(bt.entry(j.CreditAccount), j.Amount)
}

// ApplyBatch validates and applies all journals in a batch
func (bt *BalanceTracker) ApplyBatch(batch *Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}

	for _, j := range batch.Journals {
		bt.ApplyJournal(j)
	}

	return nil
}

// GetBalance returns a copy of the current balance for an account
func (bt *BalanceTracker) GetBalance(key AccountKey) *big.Int {
	if b, ok := bt.balances[key]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// UserCollateral returns the deposited amount of one asset for a user
func (bt *BalanceTracker) UserCollateral(userID uuid.UUID, asset string) *big.Int {
	return bt.GetBalance(NewCollateralKey(userID, asset))
}

// UserDebt returns the outstanding stable-token debt for a user
func (bt *BalanceTracker) UserDebt(userID uuid.UUID, stableAsset string) *big.Int {
	return bt.GetBalance(NewDebtKey(userID, stableAsset))
}

// TotalStableIssued returns the system-wide outstanding stable-token supply
func (bt *BalanceTracker) TotalStableIssued(stableAsset string) *big.Int {
	// The supply account is the credit side of every debt mint, so its
	// balance runs negative; report the magnitude.
	return new(big.Int).Neg(bt.GetBalance(NewStableSupplyKey(stableAsset)))
}

// ValidateSufficient checks that an account can be reduced by amount without
// going negative. Unsigned-underflow semantics are rejected, never wrapped.
func (bt *BalanceTracker) ValidateSufficient(key AccountKey, amount *big.Int) error {
	balance := bt.GetBalance(key)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("account %s: have=%s, need=%s", key.AccountPath(), balance, amount)
	}
	return nil
}

// ValidateNonNegative checks that a specific account balance is >= 0
func (bt *BalanceTracker) ValidateNonNegative(key AccountKey) error {
	if b, ok := bt.balances[key]; ok && b.Sign() < 0 {
		return fmt.Errorf("account %s has negative balance: %s", key.AccountPath(), b)
	}
	return nil
}

// ComputeGlobalBalance sums all account balances per asset (zero for a
// zero-sum ledger)
func (bt *BalanceTracker) ComputeGlobalBalance() map[string]*big.Int {
	totals := make(map[string]*big.Int)

	for key, balance := range bt.balances {
		t, ok := totals[key.Asset]
		if !ok {
			t = new(big.Int)
			totals[key.Asset] = t
		}
		t.Add(t, balance)
	}

	return totals
}

// Snapshot returns a deep copy of all balances
func (bt *BalanceTracker) Snapshot() map[AccountKey]*big.Int {
	snapshot := make(map[AccountKey]*big.Int, len(bt.balances))
	for k, v := range bt.balances {
		snapshot[k] = new(big.Int).Set(v)
	}
	return snapshot
}
