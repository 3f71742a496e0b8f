package ledger_test

import (
	"math/big"
	"testing"

	"github.com/google/uuid"

	"github.com/aminsammara/foundry-stablecoin/internal/ledger"
)

// ============================================================================
// Test: AccountKey
// ============================================================================

func TestAccountKey_CollateralPath(t *testing.T) {
	userID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	key := ledger.NewCollateralKey(userID, "WETH")

	path := key.AccountPath()
	expected := "user:550e8400-e29b-41d4-a716-446655440000:collateral:WETH"
	if path != expected {
		t.Errorf("got %q, want %q", path, expected)
	}
}

func TestAccountKey_DebtPath(t *testing.T) {
	userID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	key := ledger.NewDebtKey(userID, "DSC")

	path := key.AccountPath()
	expected := "user:550e8400-e29b-41d4-a716-446655440000:debt:DSC"
	if path != expected {
		t.Errorf("got %q, want %q", path, expected)
	}
}

func TestAccountKey_SystemAndExternalPaths(t *testing.T) {
	if got := ledger.NewStableSupplyKey("DSC").AccountPath(); got != "system:stable_supply:DSC" {
		t.Errorf("supply path: got %q", got)
	}
	if got := ledger.NewCollateralPoolKey("WETH").AccountPath(); got != "external:collateral_pool:WETH" {
		t.Errorf("pool path: got %q", got)
	}
}

// ============================================================================
// Test: Batch validation
// ============================================================================

func depositJournal(batchID uuid.UUID, user uuid.UUID, amount int64) ledger.Journal {
	return ledger.Journal{
		JournalID:     uuid.New(),
		BatchID:       batchID,
		DebitAccount:  ledger.NewCollateralKey(user, "WETH"),
		CreditAccount: ledger.NewCollateralPoolKey("WETH"),
		Asset:         "WETH",
		Amount:        big.NewInt(amount),
		EntryType:     ledger.EntryTypeDeposit,
	}
}

func TestBatch_ValidateEmpty(t *testing.T) {
	b := &ledger.Batch{BatchID: uuid.New()}
	if err := b.Validate(); err == nil {
		t.Error("empty batch should fail validation")
	}
}

func TestBatch_ValidateNonPositiveAmount(t *testing.T) {
	batchID := uuid.New()
	j := depositJournal(batchID, uuid.New(), 0)
	b := &ledger.Batch{BatchID: batchID, Journals: []ledger.Journal{j}}
	if err := b.Validate(); err == nil {
		t.Error("zero amount should fail validation")
	}

	j.Amount = big.NewInt(-5)
	b.Journals[0] = j
	if err := b.Validate(); err == nil {
		t.Error("negative amount should fail validation")
	}
}

func TestBatch_ValidateMismatchedBatchID(t *testing.T) {
	b := &ledger.Batch{
		BatchID:  uuid.New(),
		Journals: []ledger.Journal{depositJournal(uuid.New(), uuid.New(), 100)},
	}
	if err := b.Validate(); err == nil {
		t.Error("mismatched batch_id should fail validation")
	}
}

func TestBatch_ValidateSelfTransfer(t *testing.T) {
	batchID := uuid.New()
	key := ledger.NewCollateralKey(uuid.New(), "WETH")
	b := &ledger.Batch{
		BatchID: batchID,
		Journals: []ledger.Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			DebitAccount:  key,
			CreditAccount: key,
			Asset:         "WETH",
			Amount:        big.NewInt(100),
		}},
	}
	if err := b.Validate(); err == nil {
		t.Error("self-transfer should fail validation")
	}
}

// ============================================================================
// Test: BalanceTracker
// ============================================================================

func TestBalanceTracker_InitialBalanceZero(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	if got := bt.UserCollateral(uuid.New(), "WETH"); got.Sign() != 0 {
		t.Errorf("initial balance should be 0, got %s", got)
	}
}

func TestBalanceTracker_ApplyBatchMovesBalance(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	user := uuid.New()
	batchID := uuid.New()

	batch := &ledger.Batch{
		BatchID:  batchID,
		Journals: []ledger.Journal{depositJournal(batchID, user, 1_000_000)},
	}
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("apply batch: %v", err)
	}

	if got := bt.UserCollateral(user, "WETH"); got.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Errorf("collateral: got %s, want 1000000", got)
	}
	if got := bt.GetBalance(ledger.NewCollateralPoolKey("WETH")); got.Cmp(big.NewInt(-1_000_000)) != 0 {
		t.Errorf("pool: got %s, want -1000000", got)
	}
}

func TestBalanceTracker_GetBalanceReturnsCopy(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	user := uuid.New()
	batchID := uuid.New()
	bt.ApplyBatch(&ledger.Batch{
		BatchID:  batchID,
		Journals: []ledger.Journal{depositJournal(batchID, user, 500)},
	})

	key := ledger.NewCollateralKey(user, "WETH")
	bal := bt.GetBalance(key)
	bal.SetInt64(999_999)

	if got := bt.GetBalance(key); got.Cmp(big.NewInt(500)) != 0 {
		t.Errorf("tracker state mutated through returned balance: %s", got)
	}
}

func TestBalanceTracker_TotalStableIssued(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	user := uuid.New()
	batchID := uuid.New()

	batch := &ledger.Batch{
		BatchID: batchID,
		Journals: []ledger.Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			DebitAccount:  ledger.NewDebtKey(user, "DSC"),
			CreditAccount: ledger.NewStableSupplyKey("DSC"),
			Asset:         "DSC",
			Amount:        big.NewInt(5000),
			EntryType:     ledger.EntryTypeDebtMint,
		}},
	}
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("apply batch: %v", err)
	}

	if got := bt.TotalStableIssued("DSC"); got.Cmp(big.NewInt(5000)) != 0 {
		t.Errorf("issued: got %s, want 5000", got)
	}
	if got := bt.UserDebt(user, "DSC"); got.Cmp(big.NewInt(5000)) != 0 {
		t.Errorf("debt: got %s, want 5000", got)
	}
}

func TestBalanceTracker_ValidateSufficient(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	user := uuid.New()
	batchID := uuid.New()
	bt.ApplyBatch(&ledger.Batch{
		BatchID:  batchID,
		Journals: []ledger.Journal{depositJournal(batchID, user, 100)},
	})

	key := ledger.NewCollateralKey(user, "WETH")
	if err := bt.ValidateSufficient(key, big.NewInt(100)); err != nil {
		t.Errorf("exact balance should be sufficient: %v", err)
	}
	if err := bt.ValidateSufficient(key, big.NewInt(101)); err == nil {
		t.Error("over-balance should be rejected")
	}
}

// ============================================================================
// Test: Reversal
// ============================================================================

func TestBatch_ReversedRestoresBalances(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	user := uuid.New()
	batchID := uuid.New()

	batch := &ledger.Batch{
		BatchID: batchID,
		OpRef:   "deposit:test",
		Journals: []ledger.Journal{
			depositJournal(batchID, user, 700),
			{
				JournalID:     uuid.New(),
				BatchID:       batchID,
				DebitAccount:  ledger.NewDebtKey(user, "DSC"),
				CreditAccount: ledger.NewStableSupplyKey("DSC"),
				Asset:         "DSC",
				Amount:        big.NewInt(300),
				EntryType:     ledger.EntryTypeDebtMint,
			},
		},
	}
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("apply batch: %v", err)
	}

	rev := batch.Reversed()
	if rev.BatchID == batch.BatchID {
		t.Error("reversal must carry a fresh batch identity")
	}
	if rev.OpRef != "deposit:test:rollback" {
		t.Errorf("reversal op ref: got %q", rev.OpRef)
	}
	for _, j := range rev.Journals {
		if j.EntryType != ledger.EntryTypeRollback {
			t.Errorf("reversal entry type: got %s", j.EntryType)
		}
	}

	if err := bt.ApplyBatch(rev); err != nil {
		t.Fatalf("apply reversal: %v", err)
	}

	for key, bal := range bt.Snapshot() {
		if bal.Sign() != 0 {
			t.Errorf("account %s non-zero after reversal: %s", key.AccountPath(), bal)
		}
	}
}

// ============================================================================
// Test: InvariantValidator
// ============================================================================

func TestInvariantValidator_GlobalBalanceZeroSum(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	v := ledger.NewInvariantValidator(bt)
	user := uuid.New()
	batchID := uuid.New()

	bt.ApplyBatch(&ledger.Batch{
		BatchID:  batchID,
		Journals: []ledger.Journal{depositJournal(batchID, user, 123)},
	})

	if err := v.ValidateGlobalBalance(); err != nil {
		t.Errorf("double-entry ledger must be zero-sum: %v", err)
	}

	// A single-sided mutation breaks the invariant.
	bt.ApplyJournal(ledger.Journal{
		DebitAccount:  ledger.NewCollateralKey(user, "WETH"),
		CreditAccount: ledger.NewCollateralKey(user, "WBTC"),
		Asset:         "WETH",
		Amount:        big.NewInt(1),
	})
	if err := v.ValidateGlobalBalance(); err == nil {
		t.Error("cross-asset entry should break per-asset zero-sum")
	}
}

func TestInvariantValidator_UserAccountsNonNegative(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	v := ledger.NewInvariantValidator(bt)
	user := uuid.New()

	// Drive the user's collateral negative with a raw journal.
	bt.ApplyJournal(ledger.Journal{
		DebitAccount:  ledger.NewCollateralPoolKey("WETH"),
		CreditAccount: ledger.NewCollateralKey(user, "WETH"),
		Asset:         "WETH",
		Amount:        big.NewInt(50),
	})

	if err := v.ValidateUserAccounts(user, []string{"WETH"}, "DSC"); err == nil {
		t.Error("negative collateral should be flagged")
	}
}
