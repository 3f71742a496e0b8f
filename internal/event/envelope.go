package event

import (
	"time"
)

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeCollateralDeposited
	EventTypeCollateralRedeemed
	EventTypeDebtMinted
	EventTypeDebtBurned
	EventTypeLiquidation
)

// Envelope wraps every domain event emitted by the engine
type Envelope struct {
	// Engine-assigned monotonic sequence of the committed transition
	Sequence int64 `json:"sequence"`

	// Event type discriminator
	EventType EventType `json:"event_type"`

	// Commit time of the transition
	Timestamp time.Time `json:"timestamp"`

	// Event-specific payload
	Payload Event `json:"payload"`
}

// Event is the interface all event payloads implement
type Event interface {
	EventType() EventType
}

func (et EventType) String() string {
	switch et {
	case EventTypeCollateralDeposited:
		return "CollateralDeposited"
	case EventTypeCollateralRedeemed:
		return "CollateralRedeemed"
	case EventTypeDebtMinted:
		return "DebtMinted"
	case EventTypeDebtBurned:
		return "DebtBurned"
	case EventTypeLiquidation:
		return "Liquidation"
	default:
		return "Unknown"
	}
}
