package engine

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// Every failure is distinguishable by kind so callers can react differently:
// retry after a delay on a stale price, abort permanently on an unknown asset.
var (
	// ErrZeroAmount rejects a non-positive amount before any mutation.
	ErrZeroAmount = errors.New("engine: amount must be positive")

	// ErrUnknownAsset rejects an asset outside the configured collateral set.
	ErrUnknownAsset = errors.New("engine: asset not configured")

	// ErrInsufficientBalance rejects a redeem, burn, or seize that exceeds
	// the recorded balance. Never clamped.
	ErrInsufficientBalance = errors.New("engine: insufficient balance")

	// ErrTransferFailed wraps an external asset or token transfer that
	// reported failure. The whole transition unwinds.
	ErrTransferFailed = errors.New("engine: external transfer failed")

	// ErrMintFailed wraps a rejected external stable-token mint.
	ErrMintFailed = errors.New("engine: external mint failed")

	// ErrHealthFactorBroken is the post-condition failure; inspect the
	// wrapping HealthFactorError for the computed value.
	ErrHealthFactorBroken = errors.New("engine: health factor below minimum")

	// ErrHealthFactorOk rejects liquidation of a healthy account.
	ErrHealthFactorOk = errors.New("engine: health factor not below minimum")

	// ErrHealthFactorNotImproved rejects a liquidation that did not strictly
	// raise the target's health factor.
	ErrHealthFactorNotImproved = errors.New("engine: health factor did not improve")

	// ErrLengthMismatch rejects construction with unpaired asset/feed lists.
	ErrLengthMismatch = errors.New("engine: asset and feed lists differ in length")

	// ErrOperationInFlight rejects a reentrant invocation during an in-flight
	// external call. Rejected outright, not queued.
	ErrOperationInFlight = errors.New("engine: operation already in flight")
)

// HealthFactorError carries the computed health factor of the account that
// broke the invariant, for diagnostics.
type HealthFactorError struct {
	User         uuid.UUID
	HealthFactor *big.Int
}

func (e *HealthFactorError) Error() string {
	return fmt.Sprintf("health factor broken for user %s: %s", e.User, e.HealthFactor)
}

func (e *HealthFactorError) Unwrap() error { return ErrHealthFactorBroken }
