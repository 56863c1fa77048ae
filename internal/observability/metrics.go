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
	// Control-loop metrics
	CycleRunsTotal *prometheus.CounterVec
	CycleDuration  prometheus.Histogram

	// Stage metrics
	PositionsCreated    prometheus.Counter
	PositionsOptimized  prometheus.Counter
	SignalEvents        *prometheus.CounterVec
	InvariantViolations *prometheus.CounterVec

	// Market-data metrics
	ProviderRequestLatency *prometheus.HistogramVec
	ProviderRequestErrors  *prometheus.CounterVec
	QuoteTicksReceived     prometheus.Counter

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tradeloop"
	}

	return &Metrics{
		CycleRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "cycle_runs_total",
			Help:      "Total number of control-loop iterations by outcome",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "cycle_duration_seconds",
			Help:      "Control-loop iteration duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),

		PositionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screener",
			Name:      "positions_created_total",
			Help:      "Total number of positions created by the screener",
		}),
		PositionsOptimized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "positions_optimized_total",
			Help:      "Total number of positions advanced to OPTIMIZED",
		}),
		SignalEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "signal_events_total",
			Help:      "Total number of execution-boundary events by kind",
		}, []string{"kind"}),
		InvariantViolations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "invariant_violations_total",
			Help:      "Total number of lifecycle invariant violations by stage",
		}, []string{"stage"}),

		ProviderRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "provider_request_latency_seconds",
			Help:      "Market-data provider request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		ProviderRequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "provider_request_errors_total",
			Help:      "Total number of failed market-data provider requests",
		}, []string{"endpoint"}),
		QuoteTicksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "quote_ticks_received_total",
			Help:      "Total number of quote ticks received on the stream",
		}),

		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last control-loop iteration that completed without error",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCycle records one control-loop iteration.
func RecordCycle(status string, seconds float64) {
	DefaultMetrics.CycleRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(seconds)
}

// RecordCycleSkipped counts a tick that landed while an iteration was running.
func RecordCycleSkipped() {
	DefaultMetrics.CycleRunsTotal.WithLabelValues("skipped").Inc()
}

// MarkCycleSuccess updates the last successful cycle timestamp.
func MarkCycleSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulCycle.Set(float64(unixSeconds))
}

// RecordPositionCreated counts a position created by the screener.
func RecordPositionCreated() {
	DefaultMetrics.PositionsCreated.Inc()
}

// RecordPositionOptimized counts a position advanced to OPTIMIZED.
func RecordPositionOptimized() {
	DefaultMetrics.PositionsOptimized.Inc()
}

// RecordSignalEvent counts an execution-boundary event by kind.
func RecordSignalEvent(kind string) {
	DefaultMetrics.SignalEvents.WithLabelValues(kind).Inc()
}

// RecordViolation counts a lifecycle invariant violation in a stage.
func RecordViolation(stage string) {
	DefaultMetrics.InvariantViolations.WithLabelValues(stage).Inc()
}

// RecordProviderRequest records one market-data provider request.
func RecordProviderRequest(endpoint string, seconds float64, err error) {
	DefaultMetrics.ProviderRequestLatency.WithLabelValues(endpoint).Observe(seconds)
	if err != nil {
		DefaultMetrics.ProviderRequestErrors.WithLabelValues(endpoint).Inc()
	}
}

// RecordQuoteTick counts a quote tick received on the stream.
func RecordQuoteTick() {
	DefaultMetrics.QuoteTicksReceived.Inc()
}
