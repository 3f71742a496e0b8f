package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the stablecoin engine.
type Metrics struct {
	// --- Engine ---
	OpsApplied     *prometheus.CounterVec
	OpsRejected    *prometheus.CounterVec
	OpDuration     *prometheus.HistogramVec
	JournalEntries *prometheus.CounterVec
	EngineSequence prometheus.Gauge
	Rollbacks      *prometheus.CounterVec

	// --- Risk ---
	LiquidationsCompleted *prometheus.CounterVec
	DebtCovered           *prometheus.CounterVec
	OracleStaleRejections *prometheus.CounterVec

	// --- Channel & Backpressure ---
	ChannelSize         *prometheus.GaugeVec
	ChannelCapacity     *prometheus.GaugeVec
	ChannelUtilization  *prometheus.GaugeVec
	PublishDrops        prometheus.Counter
	PersistBackpressure prometheus.Counter

	// --- Persistence ---
	PersistOpsWritten      prometheus.Counter
	PersistJournalsWritten prometheus.Counter
	PersistBatchSize       prometheus.Histogram
	PersistBatchDur        prometheus.Histogram
	PersistErrors          *prometheus.CounterVec
	PersistRetry           prometheus.Counter
	PersistLastSequence    prometheus.Gauge

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsc_engine_ops_applied_total",
			Help: "Operations successfully committed by the engine",
		}, []string{"op"}),

		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsc_engine_ops_rejected_total",
			Help: "Operations rejected (validation, health factor, oracle)",
		}, []string{"op", "reason"}),

		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dsc_engine_op_duration_seconds",
			Help:    "Time to process a single operation",
			Buckets: latencyBuckets,
		}, []string{"op"}),

		JournalEntries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsc_engine_journal_entries_total",
			Help: "Journal entries generated",
		}, []string{"entry_type"}),

		EngineSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dsc_engine_sequence",
			Help: "Current engine sequence number",
		}),

		Rollbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsc_engine_rollbacks_total",
			Help: "Committed-then-unwound ledger batches",
		}, []string{"op"}),

		LiquidationsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsc_liquidations_completed_total",
			Help: "Completed partial liquidations",
		}, []string{"asset"}),

		DebtCovered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsc_liquidation_debt_covered_total",
			Help: "Stable-token debt repaid through liquidation (whole tokens)",
		}, []string{"asset"}),

		OracleStaleRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsc_oracle_stale_rejections_total",
			Help: "Operations rejected on stale or unavailable price data",
		}, []string{"asset"}),

		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dsc_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dsc_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ChannelUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dsc_channel_utilization",
			Help: "Channel size / capacity (0.0-1.0)",
		}, []string{"name"}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dsc_publish_drops_total",
			Help: "Events dropped due to full publish channel",
		}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dsc_persist_backpressure_total",
			Help: "Times the engine blocked on the persist channel",
		}),

		PersistOpsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dsc_persist_ops_written_total",
			Help: "Operations written to Postgres",
		}),

		PersistJournalsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dsc_persist_journals_written_total",
			Help: "Journal entries written to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dsc_persist_batch_size",
			Help:    "Operations per write batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dsc_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsc_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dsc_persist_retry_total",
			Help: "Persistence retries",
		}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dsc_persist_last_sequence",
			Help: "Last persisted sequence",
		}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsc_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dsc_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),

		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsc_query_errors_total",
			Help: "Query errors",
		}, []string{"endpoint", "code"}),
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
