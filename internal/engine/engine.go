package engine

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aminsammara/foundry-stablecoin/internal/event"
	"github.com/aminsammara/foundry-stablecoin/internal/ledger"
	"github.com/aminsammara/foundry-stablecoin/internal/observability"
	"github.com/aminsammara/foundry-stablecoin/internal/oracle"
	"github.com/aminsammara/foundry-stablecoin/internal/token"
)

// Output is one committed transition: its event envelope plus the ledger
// batch that produced it.
type Output struct {
	Envelope *event.Envelope
	Batch    *ledger.Batch
}

// Engine is the accounting and risk core of the stable token. All mutating
// operations run fully serialized as atomic units: validate, mutate ledger
// state, perform external transfers, re-validate the health-factor invariant,
// emit a domain event. A failed step unwinds the whole transition.
type Engine struct {
	// Non-reentrant guard. Held across external calls; a reentrant
	// invocation sees busy and is rejected, not queued.
	mu   sync.Mutex
	busy bool

	// stateMu protects the balance tracker against concurrent read-only
	// queries; mutations are already serialized by the guard above.
	stateMu   sync.RWMutex
	tracker   *ledger.BalanceTracker
	validator *ledger.InvariantValidator

	sequence atomic.Int64

	oracle    *oracle.Adapter
	stable    token.StableToken
	bank      token.CollateralBank
	stableSym string
	now       func() time.Time

	persistChan chan<- Output
	publishChan chan<- Output
	metrics     *observability.Metrics
	log         zerolog.Logger
}

// New constructs an Engine from construction-time configuration. The
// persist channel receives every committed transition with a blocking send;
// the publish channel with a non-blocking send (drop on full). Either may
// be nil to disable that output.
func New(cfg Config, persistChan, publishChan chan<- Output, metrics *observability.Metrics) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	adapter, err := oracle.NewAdapter(cfg.assetFeeds(), cfg.MaxPriceAge, cfg.Now)
	if err != nil {
		return nil, err
	}

	stableSym := cfg.StableSymbol
	if stableSym == "" {
		stableSym = DefaultStableSymbol
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	tracker := ledger.NewBalanceTracker()

	return &Engine{
		tracker:     tracker,
		validator:   ledger.NewInvariantValidator(tracker),
		oracle:      adapter,
		stable:      cfg.StableToken,
		bank:        cfg.CollateralBank,
		stableSym:   stableSym,
		now:         now,
		persistChan: persistChan,
		publishChan: publishChan,
		metrics:     metrics,
		log:         observability.NewLogger("engine"),
	}, nil
}

// stagedOp is an applied-but-not-yet-committed transition step: its ledger
// batch is in the tracker and its external call has succeeded. undo is the
// compensating external call, run only when a later step fails.
type stagedOp struct {
	batch *ledger.Batch
	evt   event.Event
	undo  func() error
}

func (e *Engine) acquire(op string) error {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrOperationInFlight, op)
	}
	e.busy = true
	e.mu.Unlock()
	return nil
}

func (e *Engine) release() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

func (e *Engine) apply(batch *ledger.Batch) error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.tracker.ApplyBatch(batch)
}

// unwind reverses an applied batch. Reversal of a batch that passed
// validation cannot itself fail validation.
func (e *Engine) unwind(batch *ledger.Batch) {
	if err := e.apply(batch.Reversed()); err != nil {
		panic(fmt.Sprintf("FATAL: rollback batch rejected: %v", err))
	}
}

// rollback unwinds fully staged steps in reverse order: compensating
// external call first, then the ledger reversal.
func (e *Engine) rollback(op string, staged ...*stagedOp) {
	for i := len(staged) - 1; i >= 0; i-- {
		s := staged[i]
		if s.undo != nil {
			if err := s.undo(); err != nil {
				e.log.Error().Str("op", op).Err(err).Msg("compensating external call failed")
			}
		}
		e.unwind(s.batch)
	}
	if e.metrics != nil {
		e.metrics.Rollbacks.WithLabelValues(op).Inc()
	}
}

// newBatch assembles a batch for one transition, filling identities and
// timestamps. The sequence is assigned later, at commit.
func (e *Engine) newBatch(op string, entries ...ledger.Journal) *ledger.Batch {
	batchID := uuid.New()
	b := &ledger.Batch{
		BatchID:   batchID,
		OpRef:     op + ":" + batchID.String(),
		Timestamp: e.now().UnixMicro(),
		Journals:  make([]ledger.Journal, 0, len(entries)),
	}
	for _, j := range entries {
		j.JournalID = uuid.New()
		j.BatchID = batchID
		j.OpRef = b.OpRef
		j.Timestamp = b.Timestamp
		b.Journals = append(b.Journals, j)
	}
	return b
}

// commit finalizes staged steps: assigns sequences, emits envelopes, and
// records metrics. Persist sends are blocking (no committed transition may
// be lost); publish sends drop on full.
func (e *Engine) commit(op string, start time.Time, staged ...*stagedOp) {
	e.stateMu.RLock()
	err := e.validator.ValidateGlobalBalance()
	e.stateMu.RUnlock()
	if err != nil {
		panic(fmt.Sprintf("FATAL: ledger out of balance after %s: %v", op, err))
	}

	for _, s := range staged {
		seq := e.sequence.Add(1) - 1
		s.batch.Sequence = seq
		for i := range s.batch.Journals {
			s.batch.Journals[i].Sequence = seq
		}

		out := Output{
			Envelope: &event.Envelope{
				Sequence:  seq,
				EventType: s.evt.EventType(),
				Timestamp: e.now(),
				Payload:   s.evt,
			},
			Batch: s.batch,
		}

		if e.persistChan != nil {
			select {
			case e.persistChan <- out:
			default:
				if e.metrics != nil {
					e.metrics.PersistBackpressure.Inc()
				}
				e.persistChan <- out
			}
		}

		if e.publishChan != nil {
			select {
			case e.publishChan <- out:
			default:
				if e.metrics != nil {
					e.metrics.PublishDrops.Inc()
				}
			}
		}

		if e.metrics != nil {
			for _, j := range s.batch.Journals {
				e.metrics.JournalEntries.WithLabelValues(j.EntryType.String()).Inc()
			}
			e.metrics.EngineSequence.Set(float64(seq + 1))
		}

		e.log.Info().
			Int64("sequence", seq).
			Str("op", op).
			Str("event", out.Envelope.EventType.String()).
			Msg("operation committed")
	}

	if e.metrics != nil {
		e.metrics.OpsApplied.WithLabelValues(op).Inc()
		e.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func (e *Engine) reject(op string, err error) error {
	if e.metrics != nil {
		e.metrics.OpsRejected.WithLabelValues(op, rejectReason(err)).Inc()
	}
	e.log.Warn().Str("op", op).Err(err).Msg("operation rejected")
	return err
}

// run wraps a single-step operation in the guard/commit discipline.
func (e *Engine) run(op string, fn func() (*stagedOp, error)) error {
	if err := e.acquire(op); err != nil {
		return e.reject(op, err)
	}
	defer e.release()

	start := time.Now()
	s, err := fn()
	if err != nil {
		return e.reject(op, err)
	}
	e.commit(op, start, s)
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, ErrUnknownAsset):
		return "unknown_asset"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrMintFailed):
		return "mint_failed"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrHealthFactorOk):
		return "health_factor_ok"
	case errors.Is(err, ErrHealthFactorNotImproved):
		return "not_improved"
	case errors.Is(err, ErrHealthFactorBroken):
		return "health_factor"
	case errors.Is(err, oracle.ErrStalePrice):
		return "stale_price"
	case errors.Is(err, oracle.ErrFeedUnavailable):
		return "feed_unavailable"
	case errors.Is(err, ErrOperationInFlight):
		return "busy"
	default:
		return "other"
	}
}

func requirePositive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	return nil
}

// Sequence returns the next sequence the engine will assign.
func (e *Engine) Sequence() int64 {
	return e.sequence.Load()
}

// StableSymbol returns the configured debt denomination.
func (e *Engine) StableSymbol() string {
	return e.stableSym
}
