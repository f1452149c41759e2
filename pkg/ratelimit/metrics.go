package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NoOpMetrics discards every metric. Used in tests and when rate limit
// observability is disabled.
type NoOpMetrics struct{}

// NewNoOpMetrics returns a NoOpMetrics.
func NewNoOpMetrics() *NoOpMetrics { return &NoOpMetrics{} }

func (m *NoOpMetrics) RecordRequest(limiterType, endpoint string)                   {}
func (m *NoOpMetrics) RecordDenied(limiterType, endpoint string)                    {}
func (m *NoOpMetrics) RecordAllowed(limiterType, endpoint string)                   {}
func (m *NoOpMetrics) RecordCheckDuration(limiterType string, duration time.Duration) {}
func (m *NoOpMetrics) SetActiveKeys(limiterType string, count int)                  {}
func (m *NoOpMetrics) RecordCircuitState(limiterType, state string)                 {}
func (m *NoOpMetrics) RecordDegradationLevel(limiterType string, level int)         {}
func (m *NoOpMetrics) RecordEviction(limiterType string, count int)                 {}

// PrometheusMetrics implements RateLimitMetrics on a private registry, so
// tests and multiple limiter instances never collide on metric names.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	checkDuration    *prometheus.HistogramVec
	activeKeys       *prometheus.GaugeVec
	circuitState     *prometheus.GaugeVec
	degradationLevel *prometheus.GaugeVec
	evictionsTotal   *prometheus.CounterVec
}

// NewPrometheusMetrics builds the metric set on a fresh registry. Expose
// it with promhttp.HandlerFor(m.Registry(), ...).
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_rate_limit_requests_total",
			Help: "Total rate limit requests by limiter type, status, and path",
		}, []string{"limiter_type", "status", "path"}),
		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_rate_limit_check_duration_seconds",
			Help:    "Duration of rate limit check operations",
			Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"limiter_type"}),
		activeKeys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_rate_limit_active_keys",
			Help: "Current number of active keys by limiter type",
		}, []string{"limiter_type"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_rate_limit_circuit_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"limiter_type"}),
		degradationLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_rate_limit_degradation_level",
			Help: "Current degradation level (0=normal, 1=relaxed, 2=minimal, 3=disabled)",
		}, []string{"limiter_type"}),
		evictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_rate_limit_evictions_total",
			Help: "Total LRU evictions by limiter type",
		}, []string{"limiter_type"}),
	}

	m.registry.MustRegister(
		m.requestsTotal, m.checkDuration, m.activeKeys,
		m.circuitState, m.degradationLevel, m.evictionsTotal,
	)
	return m
}

// Registry returns the private registry holding the rate limit metrics.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PrometheusMetrics) RecordRequest(limiterType, endpoint string) {
	m.requestsTotal.WithLabelValues(limiterType, "allowed", endpoint).Inc()
}

func (m *PrometheusMetrics) RecordDenied(limiterType, endpoint string) {
	m.requestsTotal.WithLabelValues(limiterType, "denied", endpoint).Inc()
}

func (m *PrometheusMetrics) RecordAllowed(limiterType, endpoint string) {
	m.requestsTotal.WithLabelValues(limiterType, "allowed", endpoint).Inc()
}

func (m *PrometheusMetrics) RecordCheckDuration(limiterType string, duration time.Duration) {
	m.checkDuration.WithLabelValues(limiterType).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) SetActiveKeys(limiterType string, count int) {
	m.activeKeys.WithLabelValues(limiterType).Set(float64(count))
}

func (m *PrometheusMetrics) RecordCircuitState(limiterType, state string) {
	var value float64
	switch state {
	case "open":
		value = 1
	case "half-open":
		value = 2
	}
	m.circuitState.WithLabelValues(limiterType).Set(value)
}

func (m *PrometheusMetrics) RecordDegradationLevel(limiterType string, level int) {
	m.degradationLevel.WithLabelValues(limiterType).Set(float64(level))
}

func (m *PrometheusMetrics) RecordEviction(limiterType string, count int) {
	m.evictionsTotal.WithLabelValues(limiterType).Add(float64(count))
}
