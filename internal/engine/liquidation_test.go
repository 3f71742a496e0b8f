package engine_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/google/uuid"

	"github.com/aminsammara/foundry-stablecoin/internal/engine"
)

// underwaterFixture sets up a user with 10 WETH and 5,000 debt, then drops
// the price to $999 so the health factor sits at 0.999.
func underwaterFixture(t *testing.T) (*fixture, uuid.UUID) {
	t.Helper()
	f := newFixture(t)
	user := uuid.New()
	fund(f, user, wad(10))
	if err := f.engine.DepositAndMint(user, weth, wad(10), wad(5000)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}
	f.feed.SetPrice(999_0000_0000, f.clock())
	return f, user
}

// ============================================================================
// Test: Liquidation
// ============================================================================

func TestLiquidate_HealthyTargetRejected(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	fund(f, user, wad(10))
	if err := f.engine.DepositAndMint(user, weth, wad(10), wad(5000)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}

	liquidator := uuid.New()
	f.stable.Mint(liquidator, wad(500))

	err := f.engine.Liquidate(liquidator, user, weth, wad(500))
	if !errors.Is(err, engine.ErrHealthFactorOk) {
		t.Fatalf("got %v, want ErrHealthFactorOk", err)
	}
}

func TestLiquidate_ZeroAmount(t *testing.T) {
	f, user := underwaterFixture(t)
	err := f.engine.Liquidate(uuid.New(), user, weth, big.NewInt(0))
	if !errors.Is(err, engine.ErrZeroAmount) {
		t.Fatalf("got %v, want ErrZeroAmount", err)
	}
}

func TestLiquidate_ConcreteScenario(t *testing.T) {
	f, user := underwaterFixture(t)

	liquidator := uuid.New()
	f.stable.Mint(liquidator, wad(500))

	startHF, err := f.engine.HealthFactor(user)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}

	if err := f.engine.Liquidate(liquidator, user, weth, wad(500)); err != nil {
		t.Fatalf("liquidate: %v", err)
	}

	// 500 debt units at $999/WETH → 500/999 WETH principal plus 10% bonus.
	principal := new(big.Int).Div(wad(500), big.NewInt(999))
	bonus := new(big.Int).Div(new(big.Int).Mul(principal, big.NewInt(10)), big.NewInt(100))
	seize := new(big.Int).Add(principal, bonus)

	if got := f.bank.BalanceOf(weth, liquidator); got.Cmp(seize) != 0 {
		t.Errorf("liquidator collateral: got %s, want %s", got, seize)
	}
	wantCollateral := new(big.Int).Sub(wad(10), seize)
	if got := f.engine.CollateralBalance(user, weth); got.Cmp(wantCollateral) != 0 {
		t.Errorf("target collateral: got %s, want %s", got, wantCollateral)
	}
	if got := f.engine.DebtBalance(user); got.Cmp(wad(4500)) != 0 {
		t.Errorf("target debt: got %s, want %s", got, wad(4500))
	}
	if got := f.stable.BalanceOf(liquidator); got.Sign() != 0 {
		t.Errorf("liquidator tokens after burn: got %s, want 0", got)
	}
	if got := f.stable.TotalSupply(); got.Cmp(wad(4500)) != 0 {
		t.Errorf("token supply: got %s, want %s", got, wad(4500))
	}

	endHF, err := f.engine.HealthFactor(user)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	if endHF.Cmp(startHF) <= 0 {
		t.Errorf("health factor must strictly improve: %s -> %s", startHF, endHF)
	}
}

func TestLiquidate_PartialCoverLeavesPositionOpen(t *testing.T) {
	f, user := underwaterFixture(t)

	liquidator := uuid.New()
	f.stable.Mint(liquidator, wad(1))

	// Arbitrarily small cover is allowed and may leave the position still
	// underwater for the next liquidator.
	if err := f.engine.Liquidate(liquidator, user, weth, wad(1)); err != nil {
		t.Fatalf("liquidate: %v", err)
	}

	hf, err := f.engine.HealthFactor(user)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	if hf.Cmp(engine.MinHealthFactor) >= 0 {
		t.Error("tiny cover should leave the position underwater")
	}
}

func TestLiquidate_NotImproved(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	fund(f, user, wad(10))
	if err := f.engine.DepositAndMint(user, weth, wad(10), wad(5000)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}

	// At $500 the health factor is 0.5. Seizing bonus-weighted collateral
	// then removes adjusted value faster than the debt shrinks, so the
	// health factor would decrease.
	f.feed.SetPrice(500_0000_0000, f.clock())

	liquidator := uuid.New()
	f.stable.Mint(liquidator, wad(500))

	err := f.engine.Liquidate(liquidator, user, weth, wad(500))
	if !errors.Is(err, engine.ErrHealthFactorNotImproved) {
		t.Fatalf("got %v, want ErrHealthFactorNotImproved", err)
	}

	// The rejected liquidation must leave no trace.
	if got := f.engine.DebtBalance(user); got.Cmp(wad(5000)) != 0 {
		t.Errorf("debt: got %s, want %s", got, wad(5000))
	}
	if got := f.engine.CollateralBalance(user, weth); got.Cmp(wad(10)) != 0 {
		t.Errorf("collateral: got %s, want %s", got, wad(10))
	}
	if got := f.stable.BalanceOf(liquidator); got.Cmp(wad(500)) != 0 {
		t.Errorf("liquidator tokens: got %s, want %s", got, wad(500))
	}
}

func TestLiquidate_DeeplyInsolventFailsClean(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	fund(f, user, wad(10))
	if err := f.engine.DepositAndMint(user, weth, wad(10), wad(5000)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}

	// At $50 the full cover would seize 110 WETH against a 10 WETH balance.
	// The engine must fail rather than seize what is there.
	f.feed.SetPrice(50_0000_0000, f.clock())

	liquidator := uuid.New()
	f.stable.Mint(liquidator, wad(5000))

	err := f.engine.Liquidate(liquidator, user, weth, wad(5000))
	if !errors.Is(err, engine.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	if got := f.engine.CollateralBalance(user, weth); got.Cmp(wad(10)) != 0 {
		t.Errorf("collateral: got %s, want %s", got, wad(10))
	}
}

func TestLiquidate_UnderwaterLiquidatorRejected(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	liquidator := uuid.New()
	fund(f, user, wad(10))
	fund(f, liquidator, wad(10))

	if err := f.engine.DepositAndMint(user, weth, wad(10), wad(5000)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}
	if err := f.engine.DepositAndMint(liquidator, weth, wad(10), wad(5000)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}

	// The drop puts both accounts underwater. A liquidator with a broken
	// position of their own is rejected.
	f.feed.SetPrice(999_0000_0000, f.clock())

	err := f.engine.Liquidate(liquidator, user, weth, wad(500))
	if !errors.Is(err, engine.ErrHealthFactorBroken) {
		t.Fatalf("got %v, want ErrHealthFactorBroken", err)
	}
	if got := f.engine.DebtBalance(user); got.Cmp(wad(5000)) != 0 {
		t.Errorf("target debt: got %s, want %s", got, wad(5000))
	}
}
