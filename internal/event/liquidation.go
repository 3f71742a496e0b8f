package event

import (
	"math/big"

	"github.com/google/uuid"
)

// Liquidation is emitted after a partial liquidation commits.
type Liquidation struct {
	Liquidator       uuid.UUID `json:"liquidator"`
	User             uuid.UUID `json:"user"`
	Asset            string    `json:"asset"`
	DebtCovered      *big.Int  `json:"debt_covered"`
	CollateralSeized *big.Int  `json:"collateral_seized"`
}

func (e *Liquidation) EventType() EventType {
	return EventTypeLiquidation
}
