package engine

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/aminsammara/foundry-stablecoin/internal/event"
	"github.com/aminsammara/foundry-stablecoin/internal/fixedpoint"
	"github.com/aminsammara/foundry-stablecoin/internal/ledger"
)

// Liquidate lets liquidator forcibly repay debtToCover of user's debt in
// exchange for the price-equivalent collateral plus a 10% bonus. Only
// permitted while the target's health factor is below the minimum, and only
// if the seizure strictly improves it. No minimum size: several liquidators
// may chip away at a deep position sequentially.
//
// When the position is so far underwater that the computed seize amount
// exceeds the recorded collateral, the call fails with
// ErrInsufficientBalance rather than seizing what is there.
func (e *Engine) Liquidate(liquidator, user uuid.UUID, asset string, debtToCover *big.Int) error {
	const op = "liquidate"

	if err := e.acquire(op); err != nil {
		return e.reject(op, err)
	}
	defer e.release()
	start := time.Now()

	s, seized, err := e.stageLiquidation(liquidator, user, asset, debtToCover)
	if err != nil {
		return e.reject(op, err)
	}
	e.commit(op, start, s)

	if e.metrics != nil {
		e.metrics.LiquidationsCompleted.WithLabelValues(asset).Inc()
		covered, _ := new(big.Float).Quo(
			new(big.Float).SetInt(debtToCover),
			new(big.Float).SetInt(fixedpoint.Wad),
		).Float64()
		e.metrics.DebtCovered.WithLabelValues(asset).Add(covered)
	}

	e.log.Info().
		Str("liquidator", liquidator.String()).
		Str("user", user.String()).
		Str("asset", asset).
		Str("debt_covered", debtToCover.String()).
		Str("collateral_seized", seized.String()).
		Msg("liquidation completed")

	return nil
}

func (e *Engine) stageLiquidation(liquidator, user uuid.UUID, asset string, debtToCover *big.Int) (*stagedOp, *big.Int, error) {
	if err := requirePositive(debtToCover); err != nil {
		return nil, nil, err
	}
	if !e.oracle.Has(asset) {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}

	debtToCover = new(big.Int).Set(debtToCover)

	startingHF, err := e.healthFactor(user)
	if err != nil {
		return nil, nil, err
	}
	if startingHF.Cmp(MinHealthFactor) >= 0 {
		return nil, nil, fmt.Errorf("%w: user %s at %s", ErrHealthFactorOk, user, startingHF)
	}

	principal, err := e.oracle.TokenAmountFromUsd(asset, debtToCover)
	if err != nil {
		return nil, nil, err
	}
	bonus := fixedpoint.PercentOf(principal, LiquidationBonusPct)
	seize := new(big.Int).Add(principal, bonus)

	collateralKey := ledger.NewCollateralKey(user, asset)
	debtKey := ledger.NewDebtKey(user, e.stableSym)

	e.stateMu.RLock()
	err = e.tracker.ValidateSufficient(collateralKey, seize)
	if err == nil {
		err = e.tracker.ValidateSufficient(debtKey, debtToCover)
	}
	e.stateMu.RUnlock()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}

	batch := e.newBatch("liquidate",
		ledger.Journal{
			DebitAccount:  ledger.NewCollateralPoolKey(asset),
			CreditAccount: collateralKey,
			Asset:         asset,
			Amount:        seize,
			EntryType:     ledger.EntryTypeLiquidationSeize,
		},
		ledger.Journal{
			DebitAccount:  ledger.NewStableSupplyKey(e.stableSym),
			CreditAccount: debtKey,
			Asset:         e.stableSym,
			Amount:        debtToCover,
			EntryType:     ledger.EntryTypeDebtBurn,
		},
	)
	if err := e.apply(batch); err != nil {
		return nil, nil, err
	}

	// Both post-conditions depend only on ledger state, so they run before
	// any external call and a failure unwinds the batch alone.
	endingHF, err := e.healthFactor(user)
	if err != nil {
		e.unwind(batch)
		return nil, nil, err
	}
	if endingHF.Cmp(startingHF) <= 0 {
		e.unwind(batch)
		return nil, nil, fmt.Errorf("%w: %s -> %s", ErrHealthFactorNotImproved, startingHF, endingHF)
	}
	if err := e.checkHealthFactor(liquidator); err != nil {
		e.unwind(batch)
		return nil, nil, err
	}

	// External settlement: pay out the seized collateral, then pull and
	// destroy the liquidator's stable tokens.
	if err := e.bank.Transfer(asset, liquidator, seize); err != nil {
		e.unwind(batch)
		return nil, nil, fmt.Errorf("%w: collateral payout: %v", ErrTransferFailed, err)
	}
	if err := e.stable.TransferFrom(liquidator, debtToCover); err != nil {
		if undoErr := e.bank.TransferFrom(asset, liquidator, seize); undoErr != nil {
			e.log.Error().Err(undoErr).Msg("compensating collateral claw-back failed")
		}
		e.unwind(batch)
		return nil, nil, fmt.Errorf("%w: stable token transfer-in: %v", ErrTransferFailed, err)
	}
	if err := e.stable.Burn(debtToCover); err != nil {
		if undoErr := e.bank.TransferFrom(asset, liquidator, seize); undoErr != nil {
			e.log.Error().Err(undoErr).Msg("compensating collateral claw-back failed")
		}
		e.unwind(batch)
		return nil, nil, fmt.Errorf("%w: stable token burn: %v", ErrTransferFailed, err)
	}

	return &stagedOp{
		batch: batch,
		evt: &event.Liquidation{
			Liquidator:       liquidator,
			User:             user,
			Asset:            asset,
			DebtCovered:      debtToCover,
			CollateralSeized: seize,
		},
	}, seize, nil
}
