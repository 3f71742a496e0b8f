package engine

import (
	"errors"
	"math/big"

	"github.com/google/uuid"

	"github.com/aminsammara/foundry-stablecoin/internal/fixedpoint"
	"github.com/aminsammara/foundry-stablecoin/internal/oracle"
)

const (
	// LiquidationThresholdPct counts only half of nominal collateral value
	// toward debt-servicing capacity: the overcollateralization buffer.
	LiquidationThresholdPct = 50

	// LiquidationBonusPct is the liquidator's incentive on top of the
	// principal-equivalent collateral.
	LiquidationBonusPct = 10
)

// MinHealthFactor is 1.0 in the 18-decimal working scale. Below it the
// account is liquidatable; at or above, debt-increasing and
// collateral-decreasing operations are permitted.
var MinHealthFactor = new(big.Int).Set(fixedpoint.Wad)

// holding is one priced collateral position, captured under the state lock.
type holding struct {
	asset  string
	amount *big.Int
}

func (e *Engine) snapshotAccount(user uuid.UUID) (debt *big.Int, holdings []holding) {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()

	debt = e.tracker.UserDebt(user, e.stableSym)
	for _, asset := range e.oracle.Assets() {
		if bal := e.tracker.UserCollateral(user, asset); bal.Sign() > 0 {
			holdings = append(holdings, holding{asset: asset, amount: bal})
		}
	}
	return debt, holdings
}

func (e *Engine) collateralValueUsd(holdings []holding) (*big.Int, error) {
	total := new(big.Int)
	for _, h := range holdings {
		v, err := e.oracle.UsdValue(h.asset, h.amount)
		if err != nil {
			if e.metrics != nil && (errors.Is(err, oracle.ErrStalePrice) || errors.Is(err, oracle.ErrFeedUnavailable)) {
				e.metrics.OracleStaleRejections.WithLabelValues(h.asset).Inc()
			}
			return nil, err
		}
		total.Add(total, v)
	}
	return total, nil
}

// healthFactor computes the account's risk scalar from live oracle reads.
// Zero-debt accounts get the maximal sentinel: the ratio is undefined with
// no debt, and division by zero must not occur.
func (e *Engine) healthFactor(user uuid.UUID) (*big.Int, error) {
	debt, holdings := e.snapshotAccount(user)
	if debt.Sign() == 0 {
		return new(big.Int).Set(fixedpoint.MaxHealthFactor), nil
	}

	collateralUsd, err := e.collateralValueUsd(holdings)
	if err != nil {
		return nil, err
	}

	adjusted := fixedpoint.PercentOf(collateralUsd, LiquidationThresholdPct)
	return fixedpoint.MulDiv(adjusted, fixedpoint.Wad, debt), nil
}

// checkHealthFactor enforces the per-account invariant after a transition
// that could have reduced it.
func (e *Engine) checkHealthFactor(user uuid.UUID) error {
	hf, err := e.healthFactor(user)
	if err != nil {
		return err
	}
	if hf.Cmp(MinHealthFactor) < 0 {
		return &HealthFactorError{User: user, HealthFactor: hf}
	}
	return nil
}

// HealthFactor returns the account's current health factor. Read-only; safe
// for accounts with zero collateral and zero debt.
func (e *Engine) HealthFactor(user uuid.UUID) (*big.Int, error) {
	return e.healthFactor(user)
}

// AccountInformation returns the account's aggregate collateral value in
// 18-decimal USD and its outstanding stable-token debt.
func (e *Engine) AccountInformation(user uuid.UUID) (collateralUsd, debt *big.Int, err error) {
	debt, holdings := e.snapshotAccount(user)
	collateralUsd, err = e.collateralValueUsd(holdings)
	if err != nil {
		return nil, nil, err
	}
	return collateralUsd, debt, nil
}
