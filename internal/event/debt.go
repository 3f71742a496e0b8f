package event

import (
	"math/big"

	"github.com/google/uuid"
)

// DebtMinted is emitted after stable-token debt is minted against collateral.
type DebtMinted struct {
	User   uuid.UUID `json:"user"`
	Amount *big.Int  `json:"amount"`
}

func (e *DebtMinted) EventType() EventType {
	return EventTypeDebtMinted
}

// DebtBurned is emitted after debt repayment commits. Payer supplied the
// stable tokens; OnBehalfOf is the account whose debt was reduced.
type DebtBurned struct {
	OnBehalfOf uuid.UUID `json:"on_behalf_of"`
	Payer      uuid.UUID `json:"payer"`
	Amount     *big.Int  `json:"amount"`
}

func (e *DebtBurned) EventType() EventType {
	return EventTypeDebtBurned
}
