// Package slo exposes the service level objective gauges the API's
// periodic reporter feeds from its request window.
package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Targets the gauges are alerted against.
const (
	// AvailabilitySLO is the uptime target (99.9% ≈ 43 min/month down).
	AvailabilitySLO = 99.9

	// LatencyP95SLO and LatencyP99SLO are latency targets in seconds.
	LatencyP95SLO = 0.200
	LatencyP99SLO = 0.500

	// ErrorRateSLO is the maximum acceptable 5xx ratio.
	ErrorRateSLO = 0.001
)

var (
	// SLOAvailability is (total - 5xx) / total over the last window.
	SLOAvailability = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_availability_ratio",
		Help: "Current availability ratio (0-1), target: 0.999",
	})

	// SLOLatencyP95 and SLOLatencyP99 hold the window's percentile
	// latencies in seconds.
	SLOLatencyP95 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_latency_p95_seconds",
		Help: "Current p95 latency in seconds, target: 0.200",
	})
	SLOLatencyP99 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_latency_p99_seconds",
		Help: "Current p99 latency in seconds, target: 0.500",
	})

	// SLOErrorRate is 5xx / total over the last window.
	SLOErrorRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_error_rate_ratio",
		Help: "Current error rate ratio (0-1), target: 0.001",
	})
)

// UpdateAvailability sets the availability gauge.
func UpdateAvailability(ratio float64) {
	SLOAvailability.Set(ratio)
}

// UpdateLatencyP95 sets the p95 latency gauge.
func UpdateLatencyP95(seconds float64) {
	SLOLatencyP95.Set(seconds)
}

// UpdateLatencyP99 sets the p99 latency gauge.
func UpdateLatencyP99(seconds float64) {
	SLOLatencyP99.Set(seconds)
}

// UpdateErrorRate sets the error rate gauge.
func UpdateErrorRate(ratio float64) {
	SLOErrorRate.Set(ratio)
}
