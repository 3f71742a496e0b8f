package engine

import (
	"math/big"

	"github.com/google/uuid"

	"github.com/aminsammara/foundry-stablecoin/internal/oracle"
)

// Read-only views over ledger and oracle state. None of these mutate
// anything or hold the operation guard.

// CollateralBalance returns user's deposited amount of one asset.
func (e *Engine) CollateralBalance(user uuid.UUID, asset string) *big.Int {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.tracker.UserCollateral(user, asset)
}

// DebtBalance returns user's outstanding stable-token debt.
func (e *Engine) DebtBalance(user uuid.UUID) *big.Int {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.tracker.UserDebt(user, e.stableSym)
}

// TotalStableIssued returns the system-wide outstanding stable-token supply
// as recorded by the ledger.
func (e *Engine) TotalStableIssued() *big.Int {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.tracker.TotalStableIssued(e.stableSym)
}

// Assets returns the configured collateral asset symbols in sorted order.
func (e *Engine) Assets() []string {
	return e.oracle.Assets()
}

// PriceFeed returns the configured feed reference for an asset.
func (e *Engine) PriceFeed(asset string) (oracle.PriceFeed, bool) {
	return e.oracle.Feed(asset)
}

// UsdValue values amount native units of asset in 18-decimal USD at the
// current price.
func (e *Engine) UsdValue(asset string, amount *big.Int) (*big.Int, error) {
	if !e.oracle.Has(asset) {
		return nil, ErrUnknownAsset
	}
	return e.oracle.UsdValue(asset, amount)
}

// TokenAmountFromUsd converts an 18-decimal USD amount into native units of
// asset at the current price.
func (e *Engine) TokenAmountFromUsd(asset string, usd *big.Int) (*big.Int, error) {
	if !e.oracle.Has(asset) {
		return nil, ErrUnknownAsset
	}
	return e.oracle.TokenAmountFromUsd(asset, usd)
}
