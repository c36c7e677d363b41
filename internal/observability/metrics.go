// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scan metrics
	PagesFetched      prometheus.Counter
	EventsSeen        prometheus.Counter
	EventsSampled     prometheus.Counter
	EventsSkipped     *prometheus.CounterVec
	RecordsAssembled  prometheus.Counter
	RecordsDropped    *prometheus.CounterVec
	HighestLedgerSeen prometheus.Gauge

	// Join metrics
	JoinsCompleted prometheus.Counter
	JoinsPartial   prometheus.Counter
	JoinsFailed    prometheus.Counter

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCRetries     *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulScan prometheus.Gauge
	TailLedgersClosed  prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "xrpl_amm_lab"
	}

	return &Metrics{
		// Scan metrics
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "pages_fetched_total",
			Help:      "Total number of account_tx pages fetched",
		}),
		EventsSeen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "events_seen_total",
			Help:      "Total number of transactions walked",
		}),
		EventsSampled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "events_sampled_total",
			Help:      "Total number of events admitted by the filter and sampler",
		}),
		EventsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "events_skipped_total",
			Help:      "Total number of events skipped by reason",
		}, []string{"reason"}),
		RecordsAssembled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "records_assembled_total",
			Help:      "Total number of pool records assembled",
		}),
		RecordsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "records_dropped_total",
			Help:      "Total number of records dropped during assembly by reason",
		}, []string{"reason"}),
		HighestLedgerSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "highest_ledger_seen",
			Help:      "Highest XRPL ledger index seen",
		}),

		// Join metrics
		JoinsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "join",
			Name:      "completed_total",
			Help:      "Total number of state joins with both sides resolved",
		}),
		JoinsPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "join",
			Name:      "partial_total",
			Help:      "Total number of state joins with one side missing",
		}),
		JoinsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "join",
			Name:      "failed_total",
			Help:      "Total number of state joins with no auxiliary data",
		}),

		// RPC metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "xrpl",
			Name:      "rpc_call_latency_seconds",
			Help:      "rippled JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "xrpl",
			Name:      "rpc_retries_total",
			Help:      "Total number of JSON-RPC retries by method",
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulScan: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_scan_timestamp",
			Help:      "Unix timestamp of last successful scan",
		}),
		TailLedgersClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "tail_ledgers_closed_total",
			Help:      "Total number of ledgerClosed notifications processed in tail mode",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPageFetched increments the pages fetched counter.
func RecordPageFetched() {
	DefaultMetrics.PagesFetched.Inc()
}

// RecordEventSkipped records a skipped event.
func RecordEventSkipped(reason string) {
	DefaultMetrics.EventsSkipped.WithLabelValues(reason).Inc()
}

// UpdateHighestLedger updates the highest ledger seen gauge.
func UpdateHighestLedger(index int64) {
	DefaultMetrics.HighestLedgerSeen.Set(float64(index))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
