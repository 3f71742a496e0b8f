package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/aminsammara/foundry-stablecoin/internal/fixedpoint"
)

var (
	// ErrStalePrice means the feed's most recent observation is older than
	// the staleness bound. Callers may retry after a delay.
	ErrStalePrice = errors.New("oracle: stale price")

	// ErrFeedUnavailable means no feed is configured for the asset, or the
	// configured feed failed to answer. Valuation-dependent operations must
	// not proceed.
	ErrFeedUnavailable = errors.New("oracle: feed unavailable")
)

// DefaultMaxPriceAge is the staleness bound applied when none is configured.
const DefaultMaxPriceAge = 3 * time.Hour

// AssetFeed pairs one collateral asset with its price feed.
type AssetFeed struct {
	Symbol   string
	Decimals int // native token decimals; 18 for the usual collateral set
	Feed     PriceFeed
}

// Adapter wraps one external price source per collateral asset. It enforces
// the staleness bound and converts 8-decimal feed prices into the ledger's
// 18-decimal working scale. No caching: every valuation reads live.
type Adapter struct {
	feeds  map[string]AssetFeed
	order  []string
	maxAge time.Duration
	now    func() time.Time
}

// NewAdapter builds an adapter over the given asset/feed pairs. The set is
// write-once: assets cannot be added or swapped after construction.
func NewAdapter(feeds []AssetFeed, maxAge time.Duration, now func() time.Time) (*Adapter, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxPriceAge
	}
	if now == nil {
		now = time.Now
	}

	m := make(map[string]AssetFeed, len(feeds))
	order := make([]string, 0, len(feeds))
	for _, af := range feeds {
		if af.Symbol == "" || af.Feed == nil {
			return nil, fmt.Errorf("asset %q has no feed configured", af.Symbol)
		}
		if _, dup := m[af.Symbol]; dup {
			return nil, fmt.Errorf("duplicate feed for asset %s", af.Symbol)
		}
		if af.Decimals <= 0 {
			af.Decimals = fixedpoint.WadDecimals
		}
		m[af.Symbol] = af
		order = append(order, af.Symbol)
	}
	sort.Strings(order)

	return &Adapter{feeds: m, order: order, maxAge: maxAge, now: now}, nil
}

// Price returns the asset's USD price in the 18-decimal working scale.
func (a *Adapter) Price(asset string) (*big.Int, error) {
	af, ok := a.feeds[asset]
	if !ok {
		return nil, fmt.Errorf("%w: no feed for asset %s", ErrFeedUnavailable, asset)
	}

	price, updatedAt, err := af.Feed.LatestPrice()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, asset, err)
	}

	if age := a.now().Sub(updatedAt); age > a.maxAge {
		return nil, fmt.Errorf("%w: %s price is %v old (bound %v)", ErrStalePrice, asset, age, a.maxAge)
	}

	return new(big.Int).Mul(big.NewInt(price), fixedpoint.FeedToWad), nil
}

// UsdValue values amount native units of asset in 18-decimal USD:
// amount × price / assetScale.
func (a *Adapter) UsdValue(asset string, amount *big.Int) (*big.Int, error) {
	price, err := a.Price(asset)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(amount, price, a.assetScale(asset)), nil
}

// TokenAmountFromUsd converts an 18-decimal USD amount into native units of
// asset at the current price: usd × assetScale / price.
func (a *Adapter) TokenAmountFromUsd(asset string, usd *big.Int) (*big.Int, error) {
	price, err := a.Price(asset)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(usd, a.assetScale(asset), price), nil
}

// Feed returns the configured feed for an asset.
func (a *Adapter) Feed(asset string) (PriceFeed, bool) {
	af, ok := a.feeds[asset]
	if !ok {
		return nil, false
	}
	return af.Feed, true
}

// Has reports whether the asset is part of the configured collateral set.
func (a *Adapter) Has(asset string) bool {
	_, ok := a.feeds[asset]
	return ok
}

// Assets returns the configured asset symbols in sorted order.
func (a *Adapter) Assets() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Decimals returns the native decimal count for an asset (18 if unknown).
func (a *Adapter) Decimals(asset string) int {
	if af, ok := a.feeds[asset]; ok {
		return af.Decimals
	}
	return fixedpoint.WadDecimals
}

func (a *Adapter) assetScale(asset string) *big.Int {
	return fixedpoint.Pow10(a.Decimals(asset))
}
