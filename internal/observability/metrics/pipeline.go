package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stage metrics track items flowing through ingest -> extract ->
// embed -> cluster -> score -> briefing -> deliver.
var (
	ItemsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_ingested_total",
			Help: "Total number of raw items persisted by an ingester",
		},
		[]string{"source_type"},
	)

	ItemsExtractedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_extracted_total",
			Help: "Total number of items that completed content extraction",
		},
		[]string{"method"},
	)

	ItemsEmbeddedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_embedded_total",
			Help: "Total number of items embedded",
		},
		[]string{"model"},
	)

	DuplicatesFoundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duplicates_found_total",
			Help: "Total number of items identified as duplicates during dedup/clustering",
		},
		[]string{"method"},
	)

	ClustersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clusters_created_total",
			Help: "Total number of new clusters created",
		},
	)

	ItemsScoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "items_scored_total",
			Help: "Total number of items that received a composite score",
		},
	)

	HighSignalTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "high_signal_total",
			Help: "Total number of items scored above the high-signal threshold",
		},
	)

	BriefingsGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "briefings_generated_total",
			Help: "Total number of briefings generated",
		},
	)

	BriefingsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefings_sent_total",
			Help: "Total number of briefings delivered, by channel",
		},
		[]string{"channel"},
	)

	CostCapRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cost_cap_rejections_total",
			Help: "Total number of LLM calls rejected by the cost cap before being attempted",
		},
		[]string{"scope"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of a single pipeline stage run",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)
