package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Enrollment outcomes recorded by MetricsService.
const (
	OutcomeEnrolled       = "enrolled"
	OutcomeDuplicate      = "duplicate"
	OutcomeCreditLimit    = "credit_limit"
	OutcomeCourseFull     = "course_full"
	OutcomeStudentMissing = "student_missing"
	OutcomeCourseMissing  = "course_missing"
)

// MetricsService owns the Prometheus registry for the records engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	enrollments     *prometheus.CounterVec
	fileOps         *prometheus.CounterVec
	importRows      *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheHitRatio   prometheus.Gauge
	mirrorDuration  *prometheus.HistogramVec

	requestCount   uint64
	cacheHitCount  uint64
	cacheMissCount uint64
	skippedRows    uint64
	backupCount    uint64
}

// SystemMetrics is a JSON-friendly summary of the collected counters.
type SystemMetrics struct {
	RequestsTotal  uint64    `json:"requests_total"`
	CacheHits      uint64    `json:"cache_hits"`
	CacheMisses    uint64    `json:"cache_misses"`
	CacheHitRatio  float64   `json:"cache_hit_ratio"`
	SkippedRows    uint64    `json:"skipped_import_rows"`
	BackupsCreated uint64    `json:"backups_created"`
	Goroutines     int       `json:"goroutines"`
	GeneratedAt    time.Time `json:"generated_at"`
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

	enrollments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ccrm_enrollment_attempts_total",
		Help: "Enrollment attempts by outcome",
	}, []string{"outcome"})

	fileOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ccrm_file_operations_total",
		Help: "Export, import, backup and restore operations by result",
	}, []string{"operation", "result"})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ccrm_import_rows_total",
		Help: "CSV rows processed during import",
	}, []string{"entity", "result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	mirrorDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ccrm_mirror_query_duration_seconds",
		Help:    "Duration of SQL mirror queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, enrollments, fileOps, importRows,
		cacheLatency, cacheHits, cacheMisses, cacheHitRatio, mirrorDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		enrollments:     enrollments,
		fileOps:         fileOps,
		importRows:      importRows,
		cacheLatency:    cacheLatency,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		cacheHitRatio:   cacheHitRatio,
		mirrorDuration:  mirrorDuration,
	}
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// ObserveHTTPRequest records request latency and count.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordEnrollment counts an enrollment attempt by outcome.
func (m *MetricsService) RecordEnrollment(outcome string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(outcome).Inc()
}

// RecordFileOperation counts a persistence operation. A nil err is a success.
func (m *MetricsService) RecordFileOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	} else if operation == "backup" {
		atomic.AddUint64(&m.backupCount, 1)
	}
	m.fileOps.WithLabelValues(operation, result).Inc()
}

// RecordImportRows counts imported and skipped rows for an entity type.
func (m *MetricsService) RecordImportRows(entity string, imported, skipped int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(entity, "imported").Add(float64(imported))
	m.importRows.WithLabelValues(entity, "skipped").Add(float64(skipped))
	atomic.AddUint64(&m.skippedRows, uint64(skipped))
}

// RecordCacheOperation records a cache lookup and refreshes the hit ratio.
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

// ObserveMirrorQuery records SQL mirror timing.
func (m *MetricsService) ObserveMirrorQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.mirrorDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// Snapshot summarises the counters for the JSON status endpoint.
func (m *MetricsService) Snapshot() SystemMetrics {
	if m == nil {
		return SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	return SystemMetrics{
		RequestsTotal:  atomic.LoadUint64(&m.requestCount),
		CacheHits:      hits,
		CacheMisses:    misses,
		CacheHitRatio:  ratio,
		SkippedRows:    atomic.LoadUint64(&m.skippedRows),
		BackupsCreated: atomic.LoadUint64(&m.backupCount),
		Goroutines:     runtime.NumGoroutine(),
		GeneratedAt:    time.Now().UTC(),
	}
}
