package engine

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/aminsammara/foundry-stablecoin/internal/event"
	"github.com/aminsammara/foundry-stablecoin/internal/ledger"
)

// DepositCollateral locks amount native units of asset for user. The ledger
// entry is written before the transfer-in so a failed transfer unwinds as a
// unit.
func (e *Engine) DepositCollateral(user uuid.UUID, asset string, amount *big.Int) error {
	return e.run("deposit", func() (*stagedOp, error) {
		return e.stageDeposit(user, asset, amount)
	})
}

// RedeemCollateral returns amount native units of asset to user. Fails with
// a HealthFactorError when the withdrawal would leave the account
// under-collateralized.
func (e *Engine) RedeemCollateral(user uuid.UUID, asset string, amount *big.Int) error {
	return e.run("redeem", func() (*stagedOp, error) {
		return e.stageRedeem(user, user, asset, amount)
	})
}

func (e *Engine) stageDeposit(user uuid.UUID, asset string, amount *big.Int) (*stagedOp, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	if !e.oracle.Has(asset) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}

	amount = new(big.Int).Set(amount)

	batch := e.newBatch("deposit", ledger.Journal{
		DebitAccount:  ledger.NewCollateralKey(user, asset),
		CreditAccount: ledger.NewCollateralPoolKey(asset),
		Asset:         asset,
		Amount:        amount,
		EntryType:     ledger.EntryTypeDeposit,
	})
	if err := e.apply(batch); err != nil {
		return nil, err
	}

	if err := e.bank.TransferFrom(asset, user, amount); err != nil {
		e.unwind(batch)
		return nil, fmt.Errorf("%w: collateral transfer-in: %v", ErrTransferFailed, err)
	}

	return &stagedOp{
		batch: batch,
		evt:   &event.CollateralDeposited{User: user, Asset: asset, Amount: amount},
		undo: func() error {
			return e.bank.Transfer(asset, user, amount)
		},
	}, nil
}

// stageRedeem decrements user's collateral and pays beneficiary. The two
// differ only on the liquidation seize path. The health-factor check runs on
// user, never on beneficiary.
func (e *Engine) stageRedeem(user, beneficiary uuid.UUID, asset string, amount *big.Int) (*stagedOp, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	if !e.oracle.Has(asset) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}

	amount = new(big.Int).Set(amount)
	key := ledger.NewCollateralKey(user, asset)

	e.stateMu.RLock()
	err := e.tracker.ValidateSufficient(key, amount)
	e.stateMu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}

	batch := e.newBatch("redeem", ledger.Journal{
		DebitAccount:  ledger.NewCollateralPoolKey(asset),
		CreditAccount: key,
		Asset:         asset,
		Amount:        amount,
		EntryType:     ledger.EntryTypeRedeem,
	})
	if err := e.apply(batch); err != nil {
		return nil, err
	}

	// The health factor depends only on ledger state, so the invariant is
	// checked before the external payout: a broken check unwinds without a
	// compensating transfer.
	if err := e.checkHealthFactor(user); err != nil {
		e.unwind(batch)
		return nil, err
	}

	if err := e.bank.Transfer(asset, beneficiary, amount); err != nil {
		e.unwind(batch)
		return nil, fmt.Errorf("%w: collateral payout: %v", ErrTransferFailed, err)
	}

	return &stagedOp{
		batch: batch,
		evt: &event.CollateralRedeemed{
			User:        user,
			Beneficiary: beneficiary,
			Asset:       asset,
			Amount:      amount,
		},
		undo: func() error {
			return e.bank.TransferFrom(asset, beneficiary, amount)
		},
	}, nil
}
