package engine

import (
	"fmt"
	"time"

	"github.com/aminsammara/foundry-stablecoin/internal/oracle"
	"github.com/aminsammara/foundry-stablecoin/internal/token"
)

// DefaultStableSymbol is the debt denomination used when none is configured.
const DefaultStableSymbol = "DSC"

// Config carries the construction-time wiring of an Engine. The collateral
// set is write-once: assets cannot be added or swapped after construction.
type Config struct {
	// Assets and Feeds are paired by index. Construction fails with
	// ErrLengthMismatch when the lists differ in length.
	Assets []string
	Feeds  []oracle.PriceFeed

	// Decimals optionally carries per-asset native decimals, paired by
	// index with Assets. Empty means 18 for every asset.
	Decimals []int

	// StableSymbol names the debt denomination. Empty means DefaultStableSymbol.
	StableSymbol string

	// StableToken is the injected mint/burn capability. The engine holds
	// exclusive mint/burn authority over it.
	StableToken token.StableToken

	// CollateralBank is the injected collateral custody capability.
	CollateralBank token.CollateralBank

	// MaxPriceAge bounds feed staleness. Zero means the oracle default.
	MaxPriceAge time.Duration

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

func (c *Config) validate() error {
	if len(c.Assets) != len(c.Feeds) {
		return fmt.Errorf("%w: %d assets, %d feeds", ErrLengthMismatch, len(c.Assets), len(c.Feeds))
	}
	if len(c.Decimals) != 0 && len(c.Decimals) != len(c.Assets) {
		return fmt.Errorf("%w: %d assets, %d decimal entries", ErrLengthMismatch, len(c.Assets), len(c.Decimals))
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("engine: no collateral assets configured")
	}
	if c.StableToken == nil {
		return fmt.Errorf("engine: no stable token configured")
	}
	if c.CollateralBank == nil {
		return fmt.Errorf("engine: no collateral bank configured")
	}
	return nil
}

func (c *Config) assetFeeds() []oracle.AssetFeed {
	feeds := make([]oracle.AssetFeed, 0, len(c.Assets))
	for i, asset := range c.Assets {
		af := oracle.AssetFeed{Symbol: asset, Feed: c.Feeds[i]}
		if len(c.Decimals) != 0 {
			af.Decimals = c.Decimals[i]
		}
		feeds = append(feeds, af)
	}
	return feeds
}
