// Package metrics provides Prometheus metrics for the match insight engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Analysis path
	analyzeRequests *prometheus.CounterVec
	analyzeLatency  prometheus.Histogram
	normalizeErrors *prometheus.CounterVec
	detectorRuns    *prometheus.CounterVec
	detectorLatency *prometheus.HistogramVec
	findings        *prometheus.CounterVec
	recommendations prometheus.Counter
	unsurfaced      prometheus.Counter

	// Progress tracking
	progressRecorded    prometheus.Counter
	progressDuplicates  prometheus.Counter
	progressCorrections prometheus.Counter
	progressErrors      prometheus.Counter
	storeLatency        *prometheus.HistogramVec
	storeErrors         *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	dedupeHits         prometheus.Counter

	// Workers
	workerCount   prometheus.Gauge
	workerActive  prometheus.Gauge
	workerLatency prometheus.Histogram
	workerErrors  prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "riftcoach",
		subsystem:        "insight",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
		Buckets:     m.histogramBuckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.analyzeRequests = auto.NewCounterVec(m.counterOpts("analyze_requests_total",
		"Analyze calls by outcome"), []string{"outcome"})
	m.analyzeLatency = auto.NewHistogram(m.histogramOpts("analyze_latency_milliseconds",
		"End to end analyze latency in milliseconds"))
	m.normalizeErrors = auto.NewCounterVec(m.counterOpts("normalize_errors_total",
		"Rejected payloads by error kind"), []string{"kind"})
	m.detectorRuns = auto.NewCounterVec(m.counterOpts("detector_runs_total",
		"Detector executions by detector and status"), []string{"detector", "status"})
	m.detectorLatency = auto.NewHistogramVec(m.histogramOpts("detector_latency_milliseconds",
		"Detector evaluation latency in milliseconds"), []string{"detector"})
	m.findings = auto.NewCounterVec(m.counterOpts("findings_total",
		"Findings emitted by category and polarity"), []string{"category", "polarity"})
	m.recommendations = auto.NewCounter(m.counterOpts("recommendations_surfaced_total",
		"Recommendations surfaced to players"))
	m.unsurfaced = auto.NewCounter(m.counterOpts("recommendations_unsurfaced_total",
		"Finding groups with no applicable template"))

	m.progressRecorded = auto.NewCounter(m.counterOpts("progress_recorded_total",
		"Progress entries appended"))
	m.progressDuplicates = auto.NewCounter(m.counterOpts("progress_duplicates_total",
		"Progress records skipped as already recorded"))
	m.progressCorrections = auto.NewCounter(m.counterOpts("progress_corrections_total",
		"Correction revisions appended"))
	m.progressErrors = auto.NewCounter(m.counterOpts("progress_errors_total",
		"Progress record failures"))
	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds",
		"Progress store operation latency in milliseconds"), []string{"op"})
	m.storeErrors = auto.NewCounterVec(m.counterOpts("store_errors_total",
		"Progress store errors by operation"), []string{"op"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Pending progress jobs"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Progress queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size over capacity"))
	m.queueEnqueue = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Jobs enqueued"))
	m.queueDequeue = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total",
		"Jobs rejected by the queue"))
	m.dedupeHits = auto.NewCounter(m.counterOpts("dedupe_hits_total",
		"Repeated deliveries short-circuited before the queue"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured progress workers"))
	m.workerActive = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently recording"))
	m.workerLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Time to record one progress job in milliseconds"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Worker record failures"))

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_total",
		"Errors by component and type"), []string{"component", "type"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})
	m.rateLimited = auto.NewCounterVec(m.counterOpts("http_rate_limited_total",
		"Requests rejected by the rate limiter"), []string{"endpoint"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Live goroutines"))
}

// Analysis Metrics Functions.

// RecordAnalyze records one analyze call.
func RecordAnalyze(outcome string, latencyMs float64) {
	globalManager.analyzeRequests.WithLabelValues(outcome).Inc()
	globalManager.analyzeLatency.Observe(latencyMs)
}

// RecordNormalizeError counts a rejected payload.
func RecordNormalizeError(kind string) {
	globalManager.normalizeErrors.WithLabelValues(kind).Inc()
}

// RecordDetectorRun records a detector outcome and its latency.
func RecordDetectorRun(detector, status string, latencyMs float64) {
	globalManager.detectorRuns.WithLabelValues(detector, status).Inc()
	globalManager.detectorLatency.WithLabelValues(detector).Observe(latencyMs)
}

// RecordFinding counts an emitted finding.
func RecordFinding(category, polarity string) {
	globalManager.findings.WithLabelValues(category, polarity).Inc()
}

// RecordRecommendations counts surfaced and unsurfaced groups for one player.
func RecordRecommendations(surfaced, unsurfaced int) {
	globalManager.recommendations.Add(float64(surfaced))
	globalManager.unsurfaced.Add(float64(unsurfaced))
}

// Progress Metrics Functions.

// RecordProgressRecorded counts a newly appended entry.
func RecordProgressRecorded() {
	globalManager.progressRecorded.Inc()
}

// RecordProgressDuplicate counts a no-op repeat delivery.
func RecordProgressDuplicate() {
	globalManager.progressDuplicates.Inc()
}

// RecordProgressCorrection counts an appended correction.
func RecordProgressCorrection() {
	globalManager.progressCorrections.Inc()
}

// RecordProgressError counts a failed record.
func RecordProgressError() {
	globalManager.progressErrors.Inc()
}

// RecordStoreLatency records a store operation latency.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a store failure.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the pending job count.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordDedupeHit counts a delivery dropped by the recent-key cache.
func RecordDedupeHit() {
	globalManager.dedupeHits.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited(endpoint string) {
	globalManager.rateLimited.WithLabelValues(endpoint).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
