package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// InvariantValidator checks structural ledger invariants after transitions.
// The health-factor invariant lives in the engine; this validator covers the
// accounting layer underneath it.
type InvariantValidator struct {
	tracker *BalanceTracker
}

func NewInvariantValidator(tracker *BalanceTracker) *InvariantValidator {
	return &InvariantValidator{tracker: tracker}
}

// ValidateGlobalBalance verifies the ledger is zero-sum per asset.
func (v *InvariantValidator) ValidateGlobalBalance() error {
	totals := v.tracker.ComputeGlobalBalance()
	for asset, total := range totals {
		if total.Sign() != 0 {
			return fmt.Errorf("global balance non-zero for asset %s: %s", asset, total)
		}
	}
	return nil
}

// ValidateUserAccounts verifies a user's collateral and debt entries are
// non-negative across the configured asset universe.
func (v *InvariantValidator) ValidateUserAccounts(userID uuid.UUID, assets []string, stableAsset string) error {
	for _, asset := range assets {
		if err := v.tracker.ValidateNonNegative(NewCollateralKey(userID, asset)); err != nil {
			return err
		}
	}
	return v.tracker.ValidateNonNegative(NewDebtKey(userID, stableAsset))
}
