package http

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"newsbot/internal/handler/http/pathutil"
	"newsbot/internal/observability/slo"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// sloWindow accumulates raw counts and a bounded sample of latencies between
// ticks of RecordSLOSnapshot so the SLO gauges reflect a live rolling window
// instead of the lifetime total. Latencies beyond sloSampleCap are dropped
// rather than grown unbounded; a few thousand samples per minute is plenty
// for a stable p95/p99 estimate.
const sloSampleCap = 4096

var sloWindow struct {
	total     atomic.Int64
	errors    atomic.Int64
	mu        sync.Mutex
	latencies []float64
}

// Prometheus metrics
var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration tracks request latency with optimized buckets for API response times.
	// Buckets are designed to capture:
	// - Fast responses: 5ms, 10ms, 25ms
	// - Normal responses: 50ms, 100ms, 250ms
	// - Slow responses: 500ms, 1s, 2.5s, 5s, 10s
	// This enables accurate p95 and p99 latency measurements.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestsInFlight tracks the current number of HTTP requests being processed.
	// This metric helps identify:
	// - Load levels and capacity
	// - Request queuing issues
	// - Potential bottlenecks
	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// Application metrics
	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	// Business metrics
	rawItemsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "raw_items_total",
			Help: "Total number of scored raw items observed in the current stats window",
		},
	)

	sourcesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sources_total",
			Help: "Total number of registered sources",
		},
	)

	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)
)

// responseWriter wraps http.ResponseWriter to record status code and response size.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// MetricsMiddleware records HTTP request metrics including duration, size, and status codes.
// It uses path normalization to prevent label cardinality explosion from ID-containing paths.
// The middleware tracks:
// - In-flight requests (gauge incremented/decremented per request)
// - Request duration with optimized histogram buckets
// - Request and response sizes
// - Status code distribution
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Track in-flight requests
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		// Track active connections (legacy metric, kept for compatibility)
		activeConnections.Inc()
		defer activeConnections.Dec()

		// Normalize path to prevent cardinality explosion
		// Example: /signals/123 -> /signals/:id
		normalizedPath := pathutil.NormalizePath(r.URL.Path)

		// Record request size
		if r.ContentLength > 0 {
			httpRequestSize.WithLabelValues(r.Method, normalizedPath).Observe(float64(r.ContentLength))
		}

		// Wrap response writer to capture status code and response size
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		// Measure request duration
		start := time.Now()
		next.ServeHTTP(rw, r)
		duration := time.Since(start).Seconds()

		// Record metrics (using normalized path to prevent cardinality explosion)
		status := strconv.Itoa(rw.statusCode)
		httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, normalizedPath, status).Observe(duration)
		httpResponseSize.WithLabelValues(r.Method, normalizedPath).Observe(float64(rw.size))

		sloWindow.total.Add(1)
		if rw.statusCode >= 500 {
			sloWindow.errors.Add(1)
		}
		sloWindow.mu.Lock()
		if len(sloWindow.latencies) < sloSampleCap {
			sloWindow.latencies = append(sloWindow.latencies, duration)
		}
		sloWindow.mu.Unlock()
	})
}

// MetricsHandler returns an HTTP handler for the Prometheus metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordSLOSnapshot drains the current request window into the slo gauges
// and resets the counters for the next window. Call this on a fixed
// interval (e.g. once a minute) from the process that owns MetricsMiddleware.
func RecordSLOSnapshot() {
	total := sloWindow.total.Swap(0)
	errs := sloWindow.errors.Swap(0)
	sloWindow.mu.Lock()
	latencies := sloWindow.latencies
	sloWindow.latencies = nil
	sloWindow.mu.Unlock()

	if total == 0 {
		return
	}
	slo.UpdateAvailability(float64(total-errs) / float64(total))
	slo.UpdateErrorRate(float64(errs) / float64(total))

	if len(latencies) == 0 {
		return
	}
	sort.Float64s(latencies)
	slo.UpdateLatencyP95(percentile(latencies, 0.95))
	slo.UpdateLatencyP99(percentile(latencies, 0.99))
}

// percentile returns the p-th percentile (0<p<1) of a pre-sorted slice: the
// element at index floor(p*(n-1)), without interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// RecordDBQuery records the duration of a database query operation.
func RecordDBQuery(operation string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateRawItemsTotal updates the raw_items_total gauge, typically from the
// item count observed by a /signals/categories/stats request.
func UpdateRawItemsTotal(count int) {
	rawItemsTotal.Set(float64(count))
}

// UpdateSourcesTotal updates the total count of registered sources.
func UpdateSourcesTotal(count int) {
	sourcesTotal.Set(float64(count))
}
