// Package metrics provides Prometheus metrics for the ringside aggregation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Scanner
	eventsScanned      prometheus.Counter
	eventsSkipped      *prometheus.CounterVec
	resultFetchLatency prometheus.Histogram
	resultFetchErrors  prometheus.Counter

	// Aggregator
	resultsFolded  prometheus.Counter
	validationGaps *prometheus.CounterVec

	// Identity
	identityResolutions *prometheus.CounterVec

	// Batch writer
	batchChunks       *prometheus.CounterVec
	batchOps          prometheus.Counter
	batchChunkLatency prometheus.Histogram

	// Runs
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	runActive   prometheus.Gauge

	// Result store client
	breakerState *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ringside",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.eventsScanned = auto.NewCounter(m.counterOpts("events_scanned_total",
		"Total number of events whose result document was fetched"))
	m.eventsSkipped = auto.NewCounterVec(m.counterOpts("events_skipped_total",
		"Total number of events skipped by the scanner"), []string{"reason"})
	m.resultFetchLatency = auto.NewHistogram(m.histogramOpts("result_fetch_latency_seconds",
		"Latency of result document fetches"))
	m.resultFetchErrors = auto.NewCounter(m.counterOpts("result_fetch_errors_total",
		"Total number of failed result document fetches"))

	m.resultsFolded = auto.NewCounter(m.counterOpts("results_folded_total",
		"Total number of fighter results folded into records"))
	m.validationGaps = auto.NewCounterVec(m.counterOpts("validation_gaps_total",
		"Total number of tolerated validation gaps"), []string{"kind"})

	m.identityResolutions = auto.NewCounterVec(m.counterOpts("identity_resolutions_total",
		"Identity resolutions by outcome"), []string{"outcome"})

	m.batchChunks = auto.NewCounterVec(m.counterOpts("batch_chunks_total",
		"Batch chunks committed or failed"), []string{"status"})
	m.batchOps = auto.NewCounter(m.counterOpts("batch_ops_committed_total",
		"Total number of operations durably committed"))
	m.batchChunkLatency = auto.NewHistogram(m.histogramOpts("batch_chunk_latency_seconds",
		"Latency of a single chunk commit"))

	m.runs = auto.NewCounterVec(m.counterOpts("runs_total",
		"Pipeline runs by mode and status"), []string{"mode", "status"})
	m.runDuration = auto.NewHistogramVec(m.histogramOpts("run_duration_seconds",
		"Pipeline run duration"), []string{"mode"})
	m.runActive = auto.NewGauge(m.gaugeOpts("run_active",
		"1 while a pipeline run is in progress"))

	m.breakerState = auto.NewGaugeVec(m.gaugeOpts("circuit_breaker_state",
		"Circuit breaker state (0 closed, 1 half-open, 2 open)"), []string{"name"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Total number of errors by component"), []string{"component", "error_type"})
}

// RecordEventScanned increments the scanned events counter.
func RecordEventScanned() {
	if globalManager.enabled {
		globalManager.eventsScanned.Inc()
	}
}

// RecordEventSkipped counts an event the scanner did not fold.
func RecordEventSkipped(reason string) {
	if globalManager.enabled {
		globalManager.eventsSkipped.WithLabelValues(reason).Inc()
	}
}

// RecordResultFetch observes a result document fetch.
func RecordResultFetch(seconds float64, failed bool) {
	if !globalManager.enabled {
		return
	}
	globalManager.resultFetchLatency.Observe(seconds)
	if failed {
		globalManager.resultFetchErrors.Inc()
	}
}

// RecordResultsFolded adds n folded results.
func RecordResultsFolded(n int) {
	if globalManager.enabled {
		globalManager.resultsFolded.Add(float64(n))
	}
}

// RecordValidationGap counts a tolerated data problem.
func RecordValidationGap(kind string) {
	if globalManager.enabled {
		globalManager.validationGaps.WithLabelValues(kind).Inc()
	}
}

// RecordIdentityResolution counts a resolution outcome (matched, new, fallback).
func RecordIdentityResolution(outcome string) {
	if globalManager.enabled {
		globalManager.identityResolutions.WithLabelValues(outcome).Inc()
	}
}

// RecordBatchChunk records a chunk commit attempt.
func RecordBatchChunk(ops int, seconds float64, err error) {
	if !globalManager.enabled {
		return
	}
	globalManager.batchChunkLatency.Observe(seconds)
	if err != nil {
		globalManager.batchChunks.WithLabelValues("failed").Inc()
		return
	}
	globalManager.batchChunks.WithLabelValues("committed").Inc()
	globalManager.batchOps.Add(float64(ops))
}

// RecordRun records a finished run.
func RecordRun(mode, status string, seconds float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.runs.WithLabelValues(mode, status).Inc()
	globalManager.runDuration.WithLabelValues(mode).Observe(seconds)
}

// UpdateRunActive flags whether a run is in progress.
func UpdateRunActive(active bool) {
	if !globalManager.enabled {
		return
	}
	if active {
		globalManager.runActive.Set(1)
		return
	}
	globalManager.runActive.Set(0)
}

// UpdateBreakerState sets the numeric state of a named circuit breaker.
func UpdateBreakerState(name string, state int) {
	if globalManager.enabled {
		globalManager.breakerState.WithLabelValues(name).Set(float64(state))
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
