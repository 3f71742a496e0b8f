package engine

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/aminsammara/foundry-stablecoin/internal/event"
	"github.com/aminsammara/foundry-stablecoin/internal/ledger"
)

// MintStableToken issues amount stable tokens to user as new debt. Fails
// with a HealthFactorError when the resulting debt would leave the account
// below the minimum health factor; the debt entry is unwound.
func (e *Engine) MintStableToken(user uuid.UUID, amount *big.Int) error {
	return e.run("mint", func() (*stagedOp, error) {
		return e.stageMint(user, amount)
	})
}

// BurnStableToken repays amount of user's own debt with user's own tokens.
func (e *Engine) BurnStableToken(user uuid.UUID, amount *big.Int) error {
	return e.run("burn", func() (*stagedOp, error) {
		return e.stageBurn(user, user, amount)
	})
}

func (e *Engine) stageMint(user uuid.UUID, amount *big.Int) (*stagedOp, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}

	amount = new(big.Int).Set(amount)

	batch := e.newBatch("mint", ledger.Journal{
		DebitAccount:  ledger.NewDebtKey(user, e.stableSym),
		CreditAccount: ledger.NewStableSupplyKey(e.stableSym),
		Asset:         e.stableSym,
		Amount:        amount,
		EntryType:     ledger.EntryTypeDebtMint,
	})
	if err := e.apply(batch); err != nil {
		return nil, err
	}

	if err := e.checkHealthFactor(user); err != nil {
		e.unwind(batch)
		return nil, err
	}

	if err := e.stable.Mint(user, amount); err != nil {
		e.unwind(batch)
		return nil, fmt.Errorf("%w: %v", ErrMintFailed, err)
	}

	return &stagedOp{
		batch: batch,
		evt:   &event.DebtMinted{User: user, Amount: amount},
		undo: func() error {
			// Pull the freshly minted tokens back and destroy them.
			if err := e.stable.TransferFrom(user, amount); err != nil {
				return err
			}
			return e.stable.Burn(amount)
		},
	}, nil
}

// stageBurn reduces onBehalfOf's debt, paid for with payer's tokens. The
// ledger debit happens before the external calls so a reentrant caller
// cannot burn against a not-yet-decremented balance.
func (e *Engine) stageBurn(onBehalfOf, payer uuid.UUID, amount *big.Int) (*stagedOp, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}

	amount = new(big.Int).Set(amount)
	debtKey := ledger.NewDebtKey(onBehalfOf, e.stableSym)

	e.stateMu.RLock()
	err := e.tracker.ValidateSufficient(debtKey, amount)
	e.stateMu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}

	batch := e.newBatch("burn", ledger.Journal{
		DebitAccount:  ledger.NewStableSupplyKey(e.stableSym),
		CreditAccount: debtKey,
		Asset:         e.stableSym,
		Amount:        amount,
		EntryType:     ledger.EntryTypeDebtBurn,
	})
	if err := e.apply(batch); err != nil {
		return nil, err
	}

	if err := e.stable.TransferFrom(payer, amount); err != nil {
		e.unwind(batch)
		return nil, fmt.Errorf("%w: stable token transfer-in: %v", ErrTransferFailed, err)
	}
	if err := e.stable.Burn(amount); err != nil {
		e.unwind(batch)
		return nil, errors.Join(
			fmt.Errorf("%w: stable token burn: %v", ErrTransferFailed, err),
			e.stable.Mint(payer, amount),
		)
	}

	return &stagedOp{
		batch: batch,
		evt:   &event.DebtBurned{OnBehalfOf: onBehalfOf, Payer: payer, Amount: amount},
		undo: func() error {
			// Re-issue the burned tokens to the payer, restoring supply.
			return e.stable.Mint(payer, amount)
		},
	}, nil
}
