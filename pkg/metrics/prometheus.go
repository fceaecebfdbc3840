// Package metrics provides Prometheus metrics for the seoscore service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	scoreBuckets     []float64
	registry         prometheus.Registerer

	// Workflow
	transitions        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	invalidTransitions *prometheus.CounterVec
	strippedFields     prometheus.Counter
	mentorScores       prometheus.Counter

	// Scoring
	monthScore       prometheus.Histogram
	penaltiesApplied *prometheus.CounterVec
	scoringLatency   prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// Repository
	repositoryLatency    *prometheus.HistogramVec
	repositoryEntries    prometheus.Gauge
	errorRateByComponent *prometheus.CounterVec

	// Notification queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueDropped            prometheus.Counter
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	eventsPublished         *prometheus.CounterVec
	publishErrors           *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps Go runtime collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "seoscore",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		scoreBuckets:     prometheus.LinearBuckets(10, 10, 10),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.transitions = m.counterVec("entry_transitions_total",
		"Committed workflow transitions by resulting status", "status")
	m.validationFailures = m.counterVec("validation_failures_total",
		"Operations rejected for missing or out-of-range input", "operation")
	m.invalidTransitions = m.counterVec("invalid_transitions_total",
		"Operations rejected because the entry was in the wrong status", "operation")
	m.strippedFields = m.counter("stripped_system_fields_total",
		"System-computed fields dropped from caller updates")
	m.mentorScores = m.counter("mentor_scores_total",
		"Mentor scores written")

	m.monthScore = m.histogram("month_score",
		"Distribution of month scores produced at submission", m.scoreBuckets)
	m.penaltiesApplied = m.counterVec("penalties_applied_total",
		"Guardrail penalties applied at submission by type", "type")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds",
		"Time spent computing a month score in milliseconds", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")
	m.errorRateByEndpoint = m.counterVec("http_errors_total",
		"HTTP error responses by endpoint, method and error type", "endpoint", "method", "error_type")

	m.repositoryLatency = m.histogramVec("repository_latency_milliseconds",
		"Repository operation latency in milliseconds", m.histogramBuckets, "backend", "operation")
	m.repositoryEntries = m.gauge("repository_entries",
		"Monthly entries held by the repository")
	m.errorRateByComponent = m.counterVec("errors_total",
		"Errors by component and type", "component", "error_type")

	m.queueSize = m.gauge("notify_queue_size",
		"Events waiting in the notification queue")
	m.queueCapacity = m.gauge("notify_queue_capacity",
		"Notification queue capacity")
	m.queueEnqueued = m.counter("notify_queue_enqueued_total",
		"Events accepted by the notification queue")
	m.queueDequeued = m.counter("notify_queue_dequeued_total",
		"Events taken from the notification queue")
	m.queueDropped = m.counter("notify_queue_dropped_total",
		"Events dropped because the notification queue was full or closed")
	m.workerCount = m.gauge("notify_worker_count",
		"Configured notification workers")
	m.workerActiveCount = m.gauge("notify_worker_active",
		"Notification workers currently publishing")
	m.workerProcessingLatency = m.histogram("notify_publish_latency_milliseconds",
		"Time spent publishing one event in milliseconds", m.histogramBuckets)
	m.eventsPublished = m.counterVec("events_published_total",
		"Events delivered by the publisher", "type")
	m.publishErrors = m.counterVec("publish_errors_total",
		"Events the publisher failed to deliver", "type")
}

// Workflow

// RecordTransition counts a committed transition into status.
func RecordTransition(status string) {
	globalManager.transitions.WithLabelValues(status).Inc()
}

// RecordValidationFailure counts an operation rejected for bad input.
func RecordValidationFailure(operation string) {
	globalManager.validationFailures.WithLabelValues(operation).Inc()
}

// RecordInvalidTransition counts an operation rejected by the state machine.
func RecordInvalidTransition(operation string) {
	globalManager.invalidTransitions.WithLabelValues(operation).Inc()
}

// RecordStrippedFields adds n to the stripped system field counter.
func RecordStrippedFields(n int) {
	globalManager.strippedFields.Add(float64(n))
}

// RecordMentorScore counts a mentor score write.
func RecordMentorScore() {
	globalManager.mentorScores.Inc()
}

// Scoring

// ObserveMonthScore records a computed month score.
func ObserveMonthScore(score float64) {
	globalManager.monthScore.Observe(score)
}

// RecordPenalty counts an applied penalty.
func RecordPenalty(penaltyType string) {
	globalManager.penaltiesApplied.WithLabelValues(penaltyType).Inc()
}

// RecordScoringLatency records scoring latency.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// HTTP

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// Repository

// RecordRepositoryLatency records the latency of one repository operation.
func RecordRepositoryLatency(backend, operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(backend, operation).Observe(latencyMs)
}

// UpdateRepositoryEntries sets the number of stored entries.
func UpdateRepositoryEntries(count int) {
	globalManager.repositoryEntries.Set(float64(count))
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// Notification queue and workers

// UpdateQueueSize sets the current queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted event.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a consumed event.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueDrop counts a dropped event.
func RecordQueueDrop() {
	globalManager.queueDropped.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records publish latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordEventPublished counts a delivered event.
func RecordEventPublished(eventType string) {
	globalManager.eventsPublished.WithLabelValues(eventType).Inc()
}

// RecordPublishError counts a failed delivery.
func RecordPublishError(eventType string) {
	globalManager.publishErrors.WithLabelValues(eventType).Inc()
}

// GetRegistry returns the registry every collector is registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
