package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	AccountScopeUser AccountScope = iota
	AccountScopeSystem
	AccountScopeExternal
)

// AccountSubType represents the account purpose
type AccountSubType uint8

const (
	// User sub-types
	SubTypeCollateral AccountSubType = iota
	SubTypeDebt

	// System sub-types
	SubTypeStableSupply

	// External sub-types
	SubTypeCollateralPool
)

// AccountKey is the in-memory key for balance tracking.
// Asset identities are plain symbols; the accepted set is fixed at engine
// construction, not here.
type AccountKey struct {
	Scope    AccountScope
	EntityID [16]byte // UUID for users, zero for system/external accounts
	SubType  AccountSubType
	Asset    string
}

// NewCollateralKey creates the key holding a user's deposited collateral
// for one asset.
func NewCollateralKey(userID uuid.UUID, asset string) AccountKey {
	return AccountKey{
		Scope:    AccountScopeUser,
		EntityID: userID,
		SubType:  SubTypeCollateral,
		Asset:    asset,
	}
}

// NewDebtKey creates the key holding a user's outstanding stable-token debt.
func NewDebtKey(userID uuid.UUID, stableAsset string) AccountKey {
	return AccountKey{
		Scope:    AccountScopeUser,
		EntityID: userID,
		SubType:  SubTypeDebt,
		Asset:    stableAsset,
	}
}

// NewCollateralPoolKey creates the external boundary account that balances
// user collateral entries (the token custody side).
func NewCollateralPoolKey(asset string) AccountKey {
	return AccountKey{
		Scope:   AccountScopeExternal,
		SubType: SubTypeCollateralPool,
		Asset:   asset,
	}
}

// NewStableSupplyKey creates the system account that balances all user debt
// entries. Its balance mirrors total stable tokens minted against the ledger.
func NewStableSupplyKey(stableAsset string) AccountKey {
	return AccountKey{
		Scope:   AccountScopeSystem,
		SubType: SubTypeStableSupply,
		Asset:   stableAsset,
	}
}

// AccountPath returns the string representation for storage/logging
func (k AccountKey) AccountPath() string {
	switch k.Scope {
	case AccountScopeUser:
		uid := uuid.UUID(k.EntityID)
		return fmt.Sprintf("user:%s:%s:%s", uid.String(), k.subTypeName(), k.Asset)
	case AccountScopeSystem:
		return fmt.Sprintf("system:%s:%s", k.subTypeName(), k.Asset)
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s:%s", k.subTypeName(), k.Asset)
	}
	return "unknown"
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypeCollateral:
		return "collateral"
	case SubTypeDebt:
		return "debt"
	case SubTypeStableSupply:
		return "stable_supply"
	case SubTypeCollateralPool:
		return "collateral_pool"
	default:
		return "unknown"
	}
}
