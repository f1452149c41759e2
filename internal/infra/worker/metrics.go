package worker

import (
	"newsbot/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the scheduler's queue
// ticks. It embeds the standard ConfigMetrics for configuration
// monitoring and adds per-queue execution tracking: each of the six
// pipeline queues (ingest, extract, embed, score, briefing, email)
// reports under the same metric names split by the "job" label.
type WorkerMetrics struct {
	*config.ConfigMetrics

	// CronJobRunsTotal counts queue tick runs by job name and status
	// (success/failure).
	CronJobRunsTotal *prometheus.CounterVec

	// CronJobDurationSeconds measures a queue tick's duration by job name.
	CronJobDurationSeconds *prometheus.HistogramVec

	// CronJobItemsProcessedTotal counts items processed per tick by job
	// name (feeds fetched, items scored, briefings sent, etc).
	CronJobItemsProcessedTotal *prometheus.CounterVec

	// CronJobLastSuccessTimestamp records the Unix timestamp of each
	// job's last successful tick.
	CronJobLastSuccessTimestamp *prometheus.GaugeVec
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics
// initialized. Metrics are auto-registered via promauto.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CronJobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of queue tick runs by job and status (success/failure)",
		}, []string{"job", "status"}),

		CronJobDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of a queue tick in seconds, by job",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}, []string{"job"}),

		CronJobItemsProcessedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_items_processed_total",
			Help: "Total number of items processed per queue tick, by job",
		}, []string{"job"}),

		CronJobLastSuccessTimestamp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of each job's last successful tick",
		}, []string{"job"}),
	}
}

// MustRegister is a no-op kept for API compatibility; promauto registers
// metrics at construction time.
func (m *WorkerMetrics) MustRegister() {}

// RecordJobRun increments the run counter for job with the given status
// ("success" or "failure").
func (m *WorkerMetrics) RecordJobRun(job, status string) {
	m.CronJobRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordJobDuration observes a tick's duration in seconds for job.
func (m *WorkerMetrics) RecordJobDuration(job string, seconds float64) {
	m.CronJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordItemsProcessed adds count to job's processed-items total.
func (m *WorkerMetrics) RecordItemsProcessed(job string, count int) {
	m.CronJobItemsProcessedTotal.WithLabelValues(job).Add(float64(count))
}

// RecordLastSuccess records the current time as job's last successful tick.
func (m *WorkerMetrics) RecordLastSuccess(job string) {
	m.CronJobLastSuccessTimestamp.WithLabelValues(job).SetToCurrentTime()
}
