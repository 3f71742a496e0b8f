package event

import (
	"math/big"

	"github.com/google/uuid"
)

// CollateralDeposited is emitted after a collateral deposit commits.
type CollateralDeposited struct {
	User   uuid.UUID `json:"user"`
	Asset  string    `json:"asset"`
	Amount *big.Int  `json:"amount"`
}

func (e *CollateralDeposited) EventType() EventType {
	return EventTypeCollateralDeposited
}

// CollateralRedeemed is emitted after a redemption commits. Beneficiary is
// the transfer target, which differs from User during liquidation seizures.
type CollateralRedeemed struct {
	User        uuid.UUID `json:"user"`
	Beneficiary uuid.UUID `json:"beneficiary"`
	Asset       string    `json:"asset"`
	Amount      *big.Int  `json:"amount"`
}

func (e *CollateralRedeemed) EventType() EventType {
	return EventTypeCollateralRedeemed
}
