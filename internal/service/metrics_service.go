package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
// All methods are safe on a nil receiver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	generationRuns   prometheus.Histogram
	eventsGenerated  *prometheus.CounterVec
	generatorErrors  *prometheus.CounterVec
	priorityAdjusted *prometheus.CounterVec
	eventsCompleted  *prometheus.CounterVec
	eventsMissed     prometheus.Counter
	jobsProcessed    *prometheus.CounterVec

	cacheHitCount     uint64
	cacheMissCount    uint64
	requestCount      uint64
	createdCount      uint64
	existingCount     uint64
	generatorErrCount uint64
	adjustmentCount   uint64
	completionCount   uint64
	missedCount       uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	generationRuns := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "care_generation_run_seconds",
		Help:    "Duration of per-owner generation passes",
		Buckets: prometheus.DefBuckets,
	})

	eventsGenerated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "care_events_generated_total",
		Help: "Candidates upserted by domain and outcome",
	}, []string{"domain", "outcome"})

	generatorErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "care_generator_errors_total",
		Help: "Isolated generator failures by domain",
	}, []string{"domain"})

	priorityAdjusted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "care_priority_adjustments_total",
		Help: "Applied priority adjustments by reason",
	}, []string{"reason"})

	eventsCompleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "care_events_completed_total",
		Help: "Completed care events by type",
	}, []string{"event_type"})

	eventsMissed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "care_events_missed_total",
		Help: "Care events marked missed by the sweep",
	})

	jobsProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "care_jobs_processed_total",
		Help: "Queued owner jobs by kind and result",
	}, []string{"kind", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		generationRuns, eventsGenerated, generatorErrors, priorityAdjusted, eventsCompleted, eventsMissed, jobsProcessed, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		generationRuns:   generationRuns,
		eventsGenerated:  eventsGenerated,
		generatorErrors:  generatorErrors,
		priorityAdjusted: priorityAdjusted,
		eventsCompleted:  eventsCompleted,
		eventsMissed:     eventsMissed,
		jobsProcessed:    jobsProcessed,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordGeneration folds a finished generation report into the counters.
func (m *MetricsService) RecordGeneration(report *models.GenerationReport) {
	if m == nil || report == nil {
		return
	}
	m.generationRuns.Observe(report.Duration.Seconds())
	for domain, n := range report.Created {
		m.eventsGenerated.WithLabelValues(string(domain), "created").Add(float64(n))
		atomic.AddUint64(&m.createdCount, uint64(n))
	}
	for domain, n := range report.Existing {
		m.eventsGenerated.WithLabelValues(string(domain), "existing").Add(float64(n))
		atomic.AddUint64(&m.existingCount, uint64(n))
	}
	for _, e := range report.Errors {
		m.generatorErrors.WithLabelValues(string(e.Domain)).Inc()
		atomic.AddUint64(&m.generatorErrCount, 1)
	}
}

// RecordAdjustment counts one applied priority change.
func (m *MetricsService) RecordAdjustment(reason models.AdjustmentReason) {
	if m == nil {
		return
	}
	m.priorityAdjusted.WithLabelValues(string(reason)).Inc()
	atomic.AddUint64(&m.adjustmentCount, 1)
}

// RecordCompletion counts one completed event.
func (m *MetricsService) RecordCompletion(eventType models.EventType) {
	if m == nil {
		return
	}
	m.eventsCompleted.WithLabelValues(string(eventType)).Inc()
	atomic.AddUint64(&m.completionCount, 1)
}

// RecordMissed counts events moved to missed by a sweep.
func (m *MetricsService) RecordMissed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsMissed.Add(float64(n))
	atomic.AddUint64(&m.missedCount, uint64(n))
}

// RecordJob counts a processed queue job.
func (m *MetricsService) RecordJob(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobsProcessed.WithLabelValues(kind, result).Inc()
}

// Snapshot returns aggregated counters for the status endpoint.
func (m *MetricsService) Snapshot() models.EngineMetrics {
	if m == nil {
		return models.EngineMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	return models.EngineMetrics{
		RequestsTotal:       atomic.LoadUint64(&m.requestCount),
		CacheHitRatio:       cacheRatio,
		EventsCreated:       atomic.LoadUint64(&m.createdCount),
		EventsExisting:      atomic.LoadUint64(&m.existingCount),
		GeneratorErrors:     atomic.LoadUint64(&m.generatorErrCount),
		PriorityAdjustments: atomic.LoadUint64(&m.adjustmentCount),
		EventsCompleted:     atomic.LoadUint64(&m.completionCount),
		EventsMissed:        atomic.LoadUint64(&m.missedCount),
		Goroutines:          runtime.NumGoroutine(),
		GeneratedAt:         time.Now().UTC(),
	}
}
