package query_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aminsammara/foundry-stablecoin/internal/engine"
	"github.com/aminsammara/foundry-stablecoin/internal/fixedpoint"
	"github.com/aminsammara/foundry-stablecoin/internal/oracle"
	"github.com/aminsammara/foundry-stablecoin/internal/query"
	"github.com/aminsammara/foundry-stablecoin/internal/token"
)

const weth = "WETH"

// $2000.00000000 in 8-decimal feed units
const startPrice = 2000_0000_0000

func wad(n int64) *big.Int {
	return fixedpoint.FromUnits(n, fixedpoint.WadDecimals)
}

func newService(t *testing.T) (*query.Service, *engine.Engine, *token.MemoryBank, *oracle.MemoryFeed) {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	feed := oracle.NewMemoryFeed(startPrice)
	feed.SetPrice(startPrice, now)
	bank := token.NewMemoryBank()

	eng, err := engine.New(engine.Config{
		Assets:         []string{weth},
		Feeds:          []oracle.PriceFeed{feed},
		StableToken:    token.NewMemoryStableToken(),
		CollateralBank: bank,
		Now:            func() time.Time { return now },
	}, nil, nil, nil)
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}

	return query.NewService(eng, nil), eng, bank, feed
}

// ============================================================================
// Test: Account snapshot
// ============================================================================

func TestAccountSnapshot_OpenPosition(t *testing.T) {
	svc, eng, bank, _ := newService(t)
	user := uuid.New()

	bank.Fund(weth, user, wad(10))
	if err := eng.DepositCollateral(user, weth, wad(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := eng.MintStableToken(user, wad(10_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	snap, err := svc.AccountSnapshot(user)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Collateral[weth].Cmp(wad(10)) != 0 {
		t.Errorf("collateral = %s, want %s", snap.Collateral[weth], wad(10))
	}
	if snap.CollateralUsd.Cmp(wad(20_000)) != 0 {
		t.Errorf("collateral usd = %s, want %s", snap.CollateralUsd, wad(20_000))
	}
	if snap.Debt.Cmp(wad(10_000)) != 0 {
		t.Errorf("debt = %s, want %s", snap.Debt, wad(10_000))
	}
	// 10000 adjusted collateral against 10000 debt: exactly at the minimum.
	if snap.HealthFactor.Cmp(fixedpoint.Wad) != 0 {
		t.Errorf("health factor = %s, want %s", snap.HealthFactor, fixedpoint.Wad)
	}
}

func TestAccountSnapshot_EmptyAccount(t *testing.T) {
	svc, _, _, _ := newService(t)

	snap, err := svc.AccountSnapshot(uuid.New())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Collateral[weth].Sign() != 0 {
		t.Errorf("collateral = %s, want 0", snap.Collateral[weth])
	}
	if snap.Debt.Sign() != 0 {
		t.Errorf("debt = %s, want 0", snap.Debt)
	}
	if snap.HealthFactor.Cmp(fixedpoint.MaxHealthFactor) != 0 {
		t.Errorf("health factor = %s, want sentinel max", snap.HealthFactor)
	}
}

// ============================================================================
// Test: Scalar queries
// ============================================================================

func TestCollateralBalance_UnknownAsset(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.CollateralBalance(uuid.New(), "DOGE")
	if !errors.Is(err, engine.ErrUnknownAsset) {
		t.Errorf("err = %v, want ErrUnknownAsset", err)
	}
}

func TestUsdValue_Passthrough(t *testing.T) {
	svc, _, _, _ := newService(t)

	usd, err := svc.UsdValue(weth, wad(3))
	if err != nil {
		t.Fatalf("usd value: %v", err)
	}
	if usd.Cmp(wad(6_000)) != 0 {
		t.Errorf("usd value = %s, want %s", usd, wad(6_000))
	}

	back, err := svc.TokenAmountFromUsd(weth, usd)
	if err != nil {
		t.Fatalf("token amount: %v", err)
	}
	if back.Cmp(wad(3)) != 0 {
		t.Errorf("token amount = %s, want %s", back, wad(3))
	}
}

func TestTotalStableIssued_TracksMint(t *testing.T) {
	svc, eng, bank, _ := newService(t)
	user := uuid.New()

	bank.Fund(weth, user, wad(10))
	if err := eng.DepositCollateral(user, weth, wad(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := eng.MintStableToken(user, wad(4_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if got := svc.TotalStableIssued(); got.Cmp(wad(4_000)) != 0 {
		t.Errorf("total issued = %s, want %s", got, wad(4_000))
	}
}

func TestPriceFeed_ReturnsConfiguredFeed(t *testing.T) {
	svc, _, _, feed := newService(t)

	got, err := svc.PriceFeed(weth)
	if err != nil {
		t.Fatalf("price feed: %v", err)
	}
	price, _, err := got.LatestPrice()
	if err != nil {
		t.Fatalf("latest price: %v", err)
	}
	want, _, _ := feed.LatestPrice()
	if price != want {
		t.Errorf("price = %d, want %d", price, want)
	}

	if _, err := svc.PriceFeed("DOGE"); !errors.Is(err, engine.ErrUnknownAsset) {
		t.Errorf("err = %v, want ErrUnknownAsset", err)
	}
}

func TestAssets_MatchesConfiguration(t *testing.T) {
	svc, _, _, _ := newService(t)

	assets := svc.Assets()
	if len(assets) != 1 || assets[0] != weth {
		t.Errorf("assets = %v, want [%s]", assets, weth)
	}
}
