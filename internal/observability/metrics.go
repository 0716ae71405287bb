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
	// Mint metrics
	MintsStarted   prometheus.Counter
	MintsConfirmed prometheus.Counter
	MintErrors     *prometheus.CounterVec

	// Bridge metrics
	CommitsTotal          *prometheus.CounterVec
	DecommitsTotal        *prometheus.CounterVec
	PartialBridgeFailures prometheus.Counter
	SplitRecoveriesOpen   prometheus.Gauge

	// Trade metrics
	TradesExecuted    *prometheus.CounterVec
	TradesRejected    *prometheus.CounterVec
	TradeVolume       *prometheus.CounterVec
	SettlementLatency *prometheus.HistogramVec

	// External client metrics
	LedgerCallLatency *prometheus.HistogramVec
	HeadCallLatency   *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	PoolsTracked  prometheus.Gauge
	UptimeSeconds prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "hydra_launchpad"
	}

	return &Metrics{
		// Mint metrics
		MintsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "started_total",
			Help:      "Total number of mint plans built",
		}),
		MintsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "confirmed_total",
			Help:      "Total number of mints confirmed on L1",
		}),
		MintErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "errors_total",
			Help:      "Total number of mint failures by reason",
		}, []string{"reason"}),

		// Bridge metrics
		CommitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "commits_total",
			Help:      "Total number of commit requests by status",
		}, []string{"status"}),
		DecommitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "decommits_total",
			Help:      "Total number of decommit requests by phase and status",
		}, []string{"phase", "status"}),
		PartialBridgeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "partial_failures_total",
			Help:      "Total number of decommits stranded after the split phase",
		}),
		SplitRecoveriesOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "split_recoveries_open",
			Help:      "Number of split recovery records awaiting phase 2",
		}),

		// Trade metrics
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "executed_total",
			Help:      "Total number of settled trades by side and layer",
		}, []string{"side", "layer"}),
		TradesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "rejected_total",
			Help:      "Total number of rejected trades by reason",
		}, []string{"reason"}),
		TradeVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "volume_lovelace_total",
			Help:      "Total settled lovelace volume by side",
		}, []string{"side"}),
		SettlementLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "settlement_latency_seconds",
			Help:      "Trade settlement latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"layer"}),

		// External client metrics
		LedgerCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "call_latency_seconds",
			Help:      "Ledger service call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		HeadCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "head",
			Name:      "call_latency_seconds",
			Help:      "Channel service call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

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
		PoolsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "pools_tracked",
			Help:      "Number of pools currently tracked",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordMintStarted increments the mints started counter.
func RecordMintStarted() {
	DefaultMetrics.MintsStarted.Inc()
}

// RecordMintConfirmed increments the mints confirmed counter.
func RecordMintConfirmed() {
	DefaultMetrics.MintsConfirmed.Inc()
}

// RecordMintError records a mint failure by reason.
func RecordMintError(reason string) {
	DefaultMetrics.MintErrors.WithLabelValues(reason).Inc()
}

// RecordCommit records a commit outcome.
func RecordCommit(status string) {
	DefaultMetrics.CommitsTotal.WithLabelValues(status).Inc()
}

// RecordDecommit records a decommit phase outcome.
func RecordDecommit(phase, status string) {
	DefaultMetrics.DecommitsTotal.WithLabelValues(phase, status).Inc()
}

// RecordTradeExecuted records a settled trade.
func RecordTradeExecuted(side, layer string, lovelace int64) {
	DefaultMetrics.TradesExecuted.WithLabelValues(side, layer).Inc()
	DefaultMetrics.TradeVolume.WithLabelValues(side).Add(float64(lovelace))
}

// RecordTradeRejected records a rejected trade by reason.
func RecordTradeRejected(reason string) {
	DefaultMetrics.TradesRejected.WithLabelValues(reason).Inc()
}

// RecordSettlementLatency records trade settlement latency.
func RecordSettlementLatency(layer string, seconds float64) {
	DefaultMetrics.SettlementLatency.WithLabelValues(layer).Observe(seconds)
}
