package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/aminsammara/foundry-stablecoin/internal/observability"
)

// Worker drains the persist channel and batch-writes to Postgres. It runs
// independently from the engine; the persist channel uses BLOCKING sends, so
// if the worker falls behind, the engine stalls and no operation is lost.
type Worker struct {
	writer       *OperationLogWriter
	inputChan    <-chan Output
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
}

func NewWorker(
	db *sql.DB,
	inputChan <-chan Output,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
) *Worker {
	return &Worker{
		writer:       NewOperationLogWriter(db),
		inputChan:    inputChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
	}
}

// Run starts the worker loop. It batches incoming outputs and flushes either
// when the batch is full or the flush timeout expires. Blocks until ctx is
// cancelled or the input channel is closed.
func (w *Worker) Run(ctx context.Context) error {
	opBatch := make([]OperationRow, 0, w.batchSize)
	journalBatch := make([]JournalRow, 0, w.batchSize*2)

	timer := time.NewTimer(w.flushTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(opBatch) > 0 {
				if err := w.flush(context.Background(), opBatch, journalBatch); err != nil {
					log.Printf("ERROR: final flush failed: %v", err)
				}
			}
			return ctx.Err()

		case output, ok := <-w.inputChan:
			if !ok {
				if len(opBatch) > 0 {
					if err := w.flush(context.Background(), opBatch, journalBatch); err != nil {
						log.Printf("ERROR: final flush failed: %v", err)
					}
				}
				return nil
			}

			opBatch = append(opBatch, output.OperationRow)
			journalBatch = append(journalBatch, output.JournalRows...)

			if len(opBatch) >= w.batchSize {
				if err := w.flushWithRetry(ctx, opBatch, journalBatch); err != nil {
					log.Printf("ERROR: batch flush failed after retries: %v", err)
				}
				opBatch = opBatch[:0]
				journalBatch = journalBatch[:0]
				timer.Reset(w.flushTimeout)
			}

		case <-timer.C:
			if len(opBatch) > 0 {
				if err := w.flushWithRetry(ctx, opBatch, journalBatch); err != nil {
					log.Printf("ERROR: timeout flush failed after retries: %v", err)
				}
				opBatch = opBatch[:0]
				journalBatch = journalBatch[:0]
			}
			timer.Reset(w.flushTimeout)
		}
	}
}

// flushWithRetry retries with exponential backoff. The worker never drops a
// batch: it retries until the write succeeds or the context is cancelled,
// and even then attempts one final flush.
func (w *Worker) flushWithRetry(ctx context.Context, ops []OperationRow, journals []JournalRow) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			log.Printf("WARN: persistence retry attempt %d (backoff=%v, ops=%d)",
				attempt, backoff, len(ops))
			select {
			case <-ctx.Done():
				finalErr := w.flush(context.Background(), ops, journals)
				if finalErr != nil {
					return fmt.Errorf("final flush on shutdown failed: %w", finalErr)
				}
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err := w.flush(ctx, ops, journals)
		if err == nil {
			if attempt > 0 {
				log.Printf("INFO: persistence flush succeeded after %d retries", attempt)
			}
			return nil
		}

		if w.metrics != nil {
			w.metrics.PersistRetry.Inc()
		}
	}
}

func (w *Worker) flush(ctx context.Context, ops []OperationRow, journals []JournalRow) error {
	start := time.Now()

	// Operations and journals commit in one transaction.
	tx, err := w.writer.db.BeginTx(ctx, nil)
	if err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("tx_begin").Inc()
		}
		return err
	}
	defer tx.Rollback()

	if err := w.writer.WriteOperationBatch(ctx, ops, tx); err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("write_operations").Inc()
		}
		return err
	}

	if err := w.writer.WriteJournalBatch(ctx, journals, tx); err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("write_journals").Inc()
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("tx_commit").Inc()
		}
		return err
	}

	if w.metrics != nil {
		w.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		w.metrics.PersistBatchSize.Observe(float64(len(ops)))
		w.metrics.PersistOpsWritten.Add(float64(len(ops)))
		w.metrics.PersistJournalsWritten.Add(float64(len(journals)))
		if len(ops) > 0 {
			w.metrics.PersistLastSequence.Set(float64(ops[len(ops)-1].Sequence))
		}
	}

	return nil
}
