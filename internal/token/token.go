package token

import (
	"errors"
	"math/big"

	"github.com/google/uuid"
)

// ErrInsufficientFunds is returned when a transfer exceeds the holder's
// balance.
var ErrInsufficientFunds = errors.New("token: insufficient funds")

// StableToken is the external stable-token collaborator, seen from the
// engine's seat. The engine holds exclusive mint/burn authority; custody is
// the engine's own holding that transfers-in land on and burns draw from.
type StableToken interface {
	// Mint issues amount of stable token to `to`.
	Mint(to uuid.UUID, amount *big.Int) error

	// TransferFrom pulls amount of stable token from `from` into engine
	// custody.
	TransferFrom(from uuid.UUID, amount *big.Int) error

	// Burn destroys amount of stable token held in engine custody.
	Burn(amount *big.Int) error
}

// CollateralBank is the external transfer surface for collateral assets,
// seen from the engine's seat.
type CollateralBank interface {
	// TransferFrom pulls amount of asset from `from` into engine custody.
	TransferFrom(asset string, from uuid.UUID, amount *big.Int) error

	// Transfer pays amount of asset out of engine custody to `to`.
	Transfer(asset string, to uuid.UUID, amount *big.Int) error
}
