package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

// MetricsService owns the Prometheus registry and is injected into every component that reports telemetry.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	cacheLatency       prometheus.Observer
	cacheWrite         prometheus.Observer
	cacheHitRatio      prometheus.Gauge
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	scheduleOperations *prometheus.CounterVec
	scheduleConflicts  *prometheus.CounterVec
	scheduleWarnings   *prometheus.CounterVec
	validationDuration prometheus.Observer

	cacheHitCount  uint64
	cacheMissCount uint64
	requestCount   uint64
	operationCount uint64
	conflictCount  uint64
}

// NewMetricsService registers the collectors on a private registry.
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
		Name:    "workload_cache_latency_seconds",
		Help:    "Latency for workload cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "workload_cache_write_seconds",
		Help:    "Latency for workload cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "workload_cache_hit_ratio",
		Help: "Ratio of workload cache hits to total lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "workload_cache_hits_total",
		Help: "Total workload cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "workload_cache_misses_total",
		Help: "Total workload cache misses",
	})

	scheduleOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "class_schedule_operations_total",
		Help: "Class schedule writes by operation and outcome",
	}, []string{"operation", "outcome"})

	scheduleConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "class_schedule_conflicts_total",
		Help: "Hard scheduling conflicts detected by dimension",
	}, []string{"type"})

	scheduleWarnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "class_schedule_warnings_total",
		Help: "Advisory warnings emitted by validation",
	}, []string{"kind"})

	validationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "class_schedule_validation_seconds",
		Help:    "Duration of candidate validation",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		scheduleOperations, scheduleConflicts, scheduleWarnings, validationDuration, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		scheduleOperations: scheduleOperations,
		scheduleConflicts:  scheduleConflicts,
		scheduleWarnings:   scheduleWarnings,
		validationDuration: validationDuration,
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

// RecordCacheOperation records a cache hit or miss and updates the hit ratio.
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
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordScheduleOperation counts a create, update or delete with its outcome.
func (m *MetricsService) RecordScheduleOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.scheduleOperations.WithLabelValues(operation, outcome).Inc()
	atomic.AddUint64(&m.operationCount, 1)
}

// RecordValidation observes a validation run along with its conflicts and warnings.
func (m *MetricsService) RecordValidation(result *models.ScheduleValidation, duration time.Duration) {
	if m == nil || result == nil {
		return
	}
	m.validationDuration.Observe(duration.Seconds())
	for _, conflict := range result.Conflicts {
		m.scheduleConflicts.WithLabelValues(string(conflict.ConflictType)).Inc()
		atomic.AddUint64(&m.conflictCount, 1)
	}
	for _, warning := range result.Warnings {
		m.scheduleWarnings.WithLabelValues(warningKind(warning)).Inc()
	}
}

// Snapshot returns aggregate counters for the health endpoint.
func (m *MetricsService) Snapshot() models.TelemetrySnapshot {
	if m == nil {
		return models.TelemetrySnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	return models.TelemetrySnapshot{
		RequestsTotal:           atomic.LoadUint64(&m.requestCount),
		ScheduleOperationsTotal: atomic.LoadUint64(&m.operationCount),
		ScheduleConflictsTotal:  atomic.LoadUint64(&m.conflictCount),
		CacheHitRatio:           ratio,
		Goroutines:              runtime.NumGoroutine(),
		GeneratedAt:             time.Now().UTC(),
	}
}
