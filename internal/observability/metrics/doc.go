// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes pipeline metrics tracking items as they move
// through ingest -> extract -> embed -> cluster -> score -> briefing ->
// deliver, plus cost-cap rejections. HTTP-layer metrics (request duration,
// count, size) and the SLO gauges derived from them live in
// internal/handler/http and internal/observability/slo respectively, since
// they're recorded from middleware rather than from pipeline stages.
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "newsbot/internal/observability/metrics"
//
//	func ingestFeed(sourceType string) {
//	    start := time.Now()
//	    // ... fetch and persist raw items ...
//	    metrics.ItemsIngestedTotal.WithLabelValues(sourceType).Inc()
//	    metrics.PipelineStageDuration.WithLabelValues("ingest").Observe(time.Since(start).Seconds())
//	}
package metrics
