package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aminsammara/foundry-stablecoin/internal/event"
	"github.com/aminsammara/foundry-stablecoin/internal/ledger"
)

// OperationLogWriter writes committed operations and their journal entries
// to Postgres using multi-row INSERT. ON CONFLICT DO NOTHING makes retried
// writes idempotent.
type OperationLogWriter struct {
	db *sql.DB
}

// OperationRow represents a row in engine_log.operations
type OperationRow struct {
	Sequence  int64
	EventType string
	OpRef     string
	Payload   []byte // JSON-encoded event payload
	Timestamp time.Time
}

// JournalRow represents a row in engine_log.journal. Amounts are decimal
// strings bound to NUMERIC(78,0): large enough for any 256-bit value.
type JournalRow struct {
	JournalID     string
	BatchID       string
	OpRef         string
	Sequence      int64
	DebitAccount  string
	CreditAccount string
	Asset         string
	Amount        string
	EntryType     int32
	Timestamp     int64
}

// Output is one committed transition in storage form.
type Output struct {
	OperationRow OperationRow
	JournalRows  []JournalRow
}

// BuildOutput converts a committed envelope and its ledger batch into
// storage rows.
func BuildOutput(env *event.Envelope, batch *ledger.Batch) Output {
	out := Output{
		OperationRow: OperationRow{
			Sequence:  env.Sequence,
			EventType: env.EventType.String(),
			OpRef:     batch.OpRef,
			Payload:   MarshalPayload(env.Payload),
			Timestamp: env.Timestamp,
		},
	}

	for _, j := range batch.Journals {
		out.JournalRows = append(out.JournalRows, JournalRow{
			JournalID:     j.JournalID.String(),
			BatchID:       j.BatchID.String(),
			OpRef:         j.OpRef,
			Sequence:      j.Sequence,
			DebitAccount:  j.DebitAccount.AccountPath(),
			CreditAccount: j.CreditAccount.AccountPath(),
			Asset:         j.Asset,
			Amount:        j.Amount.String(),
			EntryType:     int32(j.EntryType),
			Timestamp:     j.Timestamp,
		})
	}

	return out
}

func NewOperationLogWriter(db *sql.DB) *OperationLogWriter {
	return &OperationLogWriter{db: db}
}

// WriteOperationBatch writes operations to engine_log.operations inside tx.
func (w *OperationLogWriter) WriteOperationBatch(ctx context.Context, ops []OperationRow, tx *sql.Tx) error {
	if len(ops) == 0 {
		return nil
	}

	query := `INSERT INTO engine_log.operations
		(sequence, event_type, op_ref, payload, timestamp)
		VALUES `

	values := make([]string, 0, len(ops))
	args := make([]interface{}, 0, len(ops)*5)

	for i, op := range ops {
		base := i * 5
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5,
		))
		args = append(args, op.Sequence, op.EventType, op.OpRef, op.Payload, op.Timestamp)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// WriteJournalBatch writes journal entries to engine_log.journal inside tx.
func (w *OperationLogWriter) WriteJournalBatch(ctx context.Context, journals []JournalRow, tx *sql.Tx) error {
	if len(journals) == 0 {
		return nil
	}

	query := `INSERT INTO engine_log.journal
		(journal_id, batch_id, op_ref, sequence, debit_account, credit_account, asset, amount, entry_type, timestamp)
		VALUES `

	values := make([]string, 0, len(journals))
	args := make([]interface{}, 0, len(journals)*10)

	for i, j := range journals {
		base := i * 10
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10,
		))
		args = append(args,
			j.JournalID, j.BatchID, j.OpRef, j.Sequence,
			j.DebitAccount, j.CreditAccount, j.Asset, j.Amount,
			j.EntryType, j.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (journal_id) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// MarshalPayload JSON-encodes an event payload for storage.
func MarshalPayload(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("WARN: failed to marshal payload: %v", err)
		return []byte("{}")
	}
	return data
}
