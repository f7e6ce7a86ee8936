// Package metrics provides Prometheus metrics for the anchor service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by anchor.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Progression
	tasksCreated     prometheus.Counter
	tasksCompleted   prometheus.Counter
	tasksDeleted     prometheus.Counter
	rewardsRevoked   prometheus.Counter
	habitToggles     *prometheus.CounterVec
	habitPenalties   prometheus.Counter
	healthDamage     prometheus.Counter
	levelUps         prometheus.Counter
	purchases        *prometheus.CounterVec
	routineSteps     prometheus.Counter
	routinesDone     prometheus.Counter
	playerXP         prometheus.Gauge
	playerLevel      prometheus.Gauge
	playerHealth     prometheus.Gauge
	playerGold       prometheus.Gauge
	sweepRuns        prometheus.Counter
	sweepLastUnix    prometheus.Gauge
	captureEntries   *prometheus.CounterVec
	assistantCalls   *prometheus.CounterVec
	assistantLatency *prometheus.HistogramVec

	// Store
	storeWrites       prometheus.Counter
	storeWriteErrors  prometheus.Counter
	storeReadFallback *prometheus.CounterVec
	storeWriteLatency prometheus.Histogram

	// Voice pipeline
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	queueEnqueued prometheus.Counter
	queueDequeued prometheus.Counter
	queueRejected prometheus.Counter
	jobsDuplicate prometheus.Counter
	workerCount   prometheus.Gauge
	workerActive  prometheus.Gauge
	workerErrors  prometheus.Counter
	workerLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "anchor",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.tasksCreated = m.counter("tasks_created_total", "Tasks created, including decomposed ones")
	m.tasksCompleted = m.counter("tasks_completed_total", "Tasks completed for the first time")
	m.tasksDeleted = m.counter("tasks_deleted_total", "Tasks deleted")
	m.rewardsRevoked = m.counter("rewards_revoked_total", "Rewards taken back on un-completion")
	m.habitToggles = m.counterVec("habit_toggles_total", "Habit toggles by direction", "direction")
	m.habitPenalties = m.counter("habit_penalties_total", "Habits penalized by the daily sweep")
	m.healthDamage = m.counter("health_damage_total", "Health points removed by penalties")
	m.levelUps = m.counter("level_ups_total", "Level increases")
	m.purchases = m.counterVec("shop_purchases_total", "Shop purchase attempts by outcome", "outcome")
	m.routineSteps = m.counter("routine_steps_total", "Focus routine steps finished")
	m.routinesDone = m.counter("routines_completed_total", "Focus routines finished")
	m.playerXP = m.gauge("player_experience", "Cumulative experience")
	m.playerLevel = m.gauge("player_level", "Current level")
	m.playerHealth = m.gauge("player_health", "Current health")
	m.playerGold = m.gauge("player_gold", "Current gold")
	m.sweepRuns = m.counter("penalty_sweeps_total", "Penalty sweeps executed")
	m.sweepLastUnix = m.gauge("penalty_sweep_last_unix", "Unix time of the last penalty sweep")
	m.captureEntries = m.counterVec("capture_entries_total", "Captured log entries by log", "log")
	m.assistantCalls = m.counterVec("assistant_calls_total", "Assistant calls by capability and outcome", "capability", "outcome")
	m.assistantLatency = m.histogramVec("assistant_latency_milliseconds", "Assistant call latency in milliseconds", "capability")

	m.storeWrites = m.counter("store_writes_total", "Backend write batches committed")
	m.storeWriteErrors = m.counter("store_write_errors_total", "Backend write batches that failed")
	m.storeReadFallback = m.counterVec("store_read_fallbacks_total", "Keys loaded from defaults", "key", "reason")
	m.storeWriteLatency = m.histogram("store_write_latency_milliseconds", "Backend write latency in milliseconds", m.histogramBuckets)

	m.queueSize = m.gauge("queue_size", "Voice jobs waiting")
	m.queueCapacity = m.gauge("queue_capacity", "Voice queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Voice jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Voice jobs dequeued")
	m.queueRejected = m.counter("queue_rejected_total", "Voice jobs rejected because the queue was full")
	m.jobsDuplicate = m.counter("jobs_duplicate_total", "Voice submissions dropped as duplicates")
	m.workerCount = m.gauge("worker_count", "Pipeline workers")
	m.workerActive = m.gauge("worker_active_count", "Pipeline workers currently processing")
	m.workerErrors = m.counter("worker_errors_total", "Pipeline jobs that failed")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Pipeline job latency in milliseconds", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordTaskCreated increments the created tasks counter by n.
func RecordTaskCreated(n int) { globalManager.tasksCreated.Add(float64(n)) }

// RecordTaskCompleted increments the completed tasks counter.
func RecordTaskCompleted() { globalManager.tasksCompleted.Inc() }

// RecordTaskDeleted increments the deleted tasks counter.
func RecordTaskDeleted() { globalManager.tasksDeleted.Inc() }

// RecordRewardRevoked counts a reward taken back under the revoke policy.
func RecordRewardRevoked() { globalManager.rewardsRevoked.Inc() }

// RecordHabitToggle counts a habit toggle; completed selects the direction label.
func RecordHabitToggle(completed bool) {
	dir := "undo"
	if completed {
		dir = "complete"
	}
	globalManager.habitToggles.WithLabelValues(dir).Inc()
}

// RecordPenaltySweep records a sweep run with its outcome.
func RecordPenaltySweep(penalized, damage int, unix int64) {
	globalManager.sweepRuns.Inc()
	globalManager.habitPenalties.Add(float64(penalized))
	globalManager.healthDamage.Add(float64(damage))
	globalManager.sweepLastUnix.Set(float64(unix))
}

// RecordLevelUp counts gained levels.
func RecordLevelUp(levels int) {
	if levels > 0 {
		globalManager.levelUps.Add(float64(levels))
	}
}

// RecordPurchase counts a shop purchase attempt. outcome is "ok" or a failure reason.
func RecordPurchase(outcome string) { globalManager.purchases.WithLabelValues(outcome).Inc() }

// RecordRoutineStep counts a finished routine step.
func RecordRoutineStep() { globalManager.routineSteps.Inc() }

// RecordRoutineCompleted counts a finished routine.
func RecordRoutineCompleted() { globalManager.routinesDone.Inc() }

// UpdatePlayer sets the player gauges.
func UpdatePlayer(xp, level, health, gold int) {
	globalManager.playerXP.Set(float64(xp))
	globalManager.playerLevel.Set(float64(level))
	globalManager.playerHealth.Set(float64(health))
	globalManager.playerGold.Set(float64(gold))
}

// RecordCaptureEntry counts an entry appended to the named log.
func RecordCaptureEntry(log string) { globalManager.captureEntries.WithLabelValues(log).Inc() }

// RecordAssistantCall records one assistant call and its latency.
func RecordAssistantCall(capability, outcome string, latencyMs float64) {
	globalManager.assistantCalls.WithLabelValues(capability, outcome).Inc()
	globalManager.assistantLatency.WithLabelValues(capability).Observe(latencyMs)
}

// RecordStoreWrite records a committed write batch.
func RecordStoreWrite(latencyMs float64) {
	globalManager.storeWrites.Inc()
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// RecordStoreWriteError counts a failed write batch.
func RecordStoreWriteError() { globalManager.storeWriteErrors.Inc() }

// RecordStoreReadFallback counts a key that was loaded from its default.
func RecordStoreReadFallback(key, reason string) {
	globalManager.storeReadFallback.WithLabelValues(key, reason).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueRejected counts a job refused because the queue was full.
func RecordQueueRejected() { globalManager.queueRejected.Inc() }

// RecordJobDuplicate counts a voice submission dropped by the deduper.
func RecordJobDuplicate() { globalManager.jobsDuplicate.Inc() }

// UpdateWorkerCount sets the pipeline worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActive.Set(float64(count)) }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) { globalManager.workerLatency.Observe(latencyMs) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by anchor.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
