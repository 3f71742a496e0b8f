package ledger

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// EntryType represents the purpose of a journal entry
type EntryType int32

const (
	EntryTypeDeposit EntryType = iota
	EntryTypeRedeem
	EntryTypeDebtMint
	EntryTypeDebtBurn
	EntryTypeLiquidationSeize
	EntryTypeRollback
)

func (et EntryType) String() string {
	switch et {
	case EntryTypeDeposit:
		return "deposit"
	case EntryTypeRedeem:
		return "redeem"
	case EntryTypeDebtMint:
		return "debt_mint"
	case EntryTypeDebtBurn:
		return "debt_burn"
	case EntryTypeLiquidationSeize:
		return "liquidation_seize"
	case EntryTypeRollback:
		return "rollback"
	default:
		return "unknown"
	}
}

// Journal represents a single double-entry journal entry
type Journal struct {
	JournalID     uuid.UUID  // Unique identifier
	BatchID       uuid.UUID  // Groups entries of one transition
	OpRef         string     // Reference to the originating operation
	Sequence      int64      // Engine-assigned operation sequence
	DebitAccount  AccountKey // Account whose balance increases
	CreditAccount AccountKey // Account whose balance decreases
	Asset         string     // Asset being moved
	Amount        *big.Int   // Native-unit amount (ALWAYS positive)
	EntryType     EntryType  // Entry purpose
	Timestamp     int64      // Epoch microseconds
}

// Batch represents the journal entries of one atomic transition
type Batch struct {
	BatchID   uuid.UUID
	OpRef     string
	Sequence  int64
	Timestamp int64
	Journals  []Journal
}

// Validate ensures the batch is well-formed.
// Each entry is a balanced transfer by construction (one positive amount
// moves from credit account to debit account), so Σ debits == Σ credits
// holds per-entry. Multi-leg transitions use multiple entries under one
// batch_id.
func (b *Batch) Validate() error {
	if len(b.Journals) == 0 {
		return fmt.Errorf("batch %s is empty", b.BatchID)
	}

	for _, j := range b.Journals {
		if j.Amount == nil || j.Amount.Sign() <= 0 {
			return fmt.Errorf("journal %s has non-positive amount", j.JournalID)
		}

		if j.BatchID != b.BatchID {
			return fmt.Errorf("journal %s has mismatched batch_id", j.JournalID)
		}

		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
	}

	return nil
}

// Reversed returns the compensating batch for rollback: same amounts with
// debit and credit swapped, under a fresh batch identity. Applying a batch
// followed by its reversal leaves every balance unchanged.
func (b *Batch) Reversed() *Batch {
	rev := &Batch{
		BatchID:   uuid.New(),
		OpRef:     b.OpRef + ":rollback",
		Sequence:  b.Sequence,
		Timestamp: b.Timestamp,
		Journals:  make([]Journal, 0, len(b.Journals)),
	}

	// Reverse in LIFO order so partial-state invariants hold mid-unwind.
	for i := len(b.Journals) - 1; i >= 0; i-- {
		j := b.Journals[i]
		rev.Journals = append(rev.Journals, Journal{
			JournalID:     uuid.New(),
			BatchID:       rev.BatchID,
			OpRef:         rev.OpRef,
			Sequence:      j.Sequence,
			DebitAccount:  j.CreditAccount,
			CreditAccount: j.DebitAccount,
			Asset:         j.Asset,
			Amount:        new(big.Int).Set(j.Amount),
			EntryType:     EntryTypeRollback,
			Timestamp:     j.Timestamp,
		})
	}

	return rev
}
