package worker

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWorkerMetrics(t *testing.T) {
	metrics := globalTestMetrics

	if metrics == nil {
		t.Fatal("NewWorkerMetrics returned nil")
	}
	if metrics.ConfigMetrics == nil {
		t.Error("ConfigMetrics is nil")
	}
	if metrics.CronJobRunsTotal == nil {
		t.Error("CronJobRunsTotal is nil")
	}
	if metrics.CronJobDurationSeconds == nil {
		t.Error("CronJobDurationSeconds is nil")
	}
	if metrics.CronJobItemsProcessedTotal == nil {
		t.Error("CronJobItemsProcessedTotal is nil")
	}
	if metrics.CronJobLastSuccessTimestamp == nil {
		t.Error("CronJobLastSuccessTimestamp is nil")
	}

	metrics.MustRegister()
}

func newIsolatedMetrics() (*WorkerMetrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_worker_cron_job_runs_total",
		Help: "Test counter",
	}, []string{"job", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_worker_cron_job_duration_seconds",
		Help:    "Test histogram",
		Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
	}, []string{"job"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_worker_cron_job_items_processed_total",
		Help: "Test counter",
	}, []string{"job"})
	lastSuccess := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "test_worker_cron_job_last_success_timestamp",
		Help: "Test gauge",
	}, []string{"job"})

	reg.MustRegister(runs, duration, items, lastSuccess)

	return &WorkerMetrics{
		CronJobRunsTotal:            runs,
		CronJobDurationSeconds:      duration,
		CronJobItemsProcessedTotal:  items,
		CronJobLastSuccessTimestamp: lastSuccess,
	}, reg
}

func TestWorkerMetrics_RecordJobRun(t *testing.T) {
	metrics, _ := newIsolatedMetrics()

	metrics.RecordJobRun("ingest", "success")
	metrics.RecordJobRun("ingest", "success")
	metrics.RecordJobRun("ingest", "failure")
	metrics.RecordJobRun("score", "success")

	if got := testutil.ToFloat64(metrics.CronJobRunsTotal.WithLabelValues("ingest", "success")); got != 2 {
		t.Errorf("expected ingest success count 2, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.CronJobRunsTotal.WithLabelValues("ingest", "failure")); got != 1 {
		t.Errorf("expected ingest failure count 1, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.CronJobRunsTotal.WithLabelValues("score", "success")); got != 1 {
		t.Errorf("expected score success count 1, got %f", got)
	}
}

func TestWorkerMetrics_RecordJobDuration(t *testing.T) {
	metrics, reg := newIsolatedMetrics()

	metrics.RecordJobDuration("embed", 10.5)
	metrics.RecordJobDuration("embed", 120.0)
	metrics.RecordJobDuration("embed", 600.0)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_worker_cron_job_duration_seconds" {
			found = true
			if len(mf.GetMetric()) == 0 {
				t.Fatal("expected metrics to be recorded")
			}
			if mf.GetMetric()[0].GetHistogram().GetSampleCount() != 3 {
				t.Errorf("expected 3 observations, got %d", mf.GetMetric()[0].GetHistogram().GetSampleCount())
			}
		}
	}
	if !found {
		t.Error("histogram metric not found in registry")
	}
}

func TestWorkerMetrics_RecordItemsProcessed(t *testing.T) {
	metrics, _ := newIsolatedMetrics()

	metrics.RecordItemsProcessed("briefing", 10)
	metrics.RecordItemsProcessed("briefing", 25)
	metrics.RecordItemsProcessed("email", 5)

	if got := testutil.ToFloat64(metrics.CronJobItemsProcessedTotal.WithLabelValues("briefing")); got != 35 {
		t.Errorf("expected briefing total 35, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.CronJobItemsProcessedTotal.WithLabelValues("email")); got != 5 {
		t.Errorf("expected email total 5, got %f", got)
	}
}

func TestWorkerMetrics_RecordItemsProcessed_ZeroValue(t *testing.T) {
	metrics, _ := newIsolatedMetrics()

	metrics.RecordItemsProcessed("extract", 0)

	if got := testutil.ToFloat64(metrics.CronJobItemsProcessedTotal.WithLabelValues("extract")); got != 0 {
		t.Errorf("expected total 0, got %f", got)
	}
}

func TestWorkerMetrics_RecordLastSuccess(t *testing.T) {
	metrics, _ := newIsolatedMetrics()

	if got := testutil.ToFloat64(metrics.CronJobLastSuccessTimestamp.WithLabelValues("ingest")); got != 0 {
		t.Errorf("expected initial value 0, got %f", got)
	}

	metrics.RecordLastSuccess("ingest")

	if got := testutil.ToFloat64(metrics.CronJobLastSuccessTimestamp.WithLabelValues("ingest")); got <= 0 {
		t.Errorf("expected positive timestamp, got %f", got)
	}
}

func TestWorkerMetrics_MultipleJobRuns(t *testing.T) {
	metrics, reg := newIsolatedMetrics()

	metrics.RecordJobRun("ingest", "success")
	metrics.RecordJobDuration("ingest", 45.5)
	metrics.RecordItemsProcessed("ingest", 10)
	metrics.RecordLastSuccess("ingest")

	metrics.RecordJobRun("ingest", "success")
	metrics.RecordJobDuration("ingest", 38.2)
	metrics.RecordItemsProcessed("ingest", 12)
	metrics.RecordLastSuccess("ingest")

	metrics.RecordJobRun("ingest", "failure")
	metrics.RecordJobDuration("ingest", 5.0)

	if got := testutil.ToFloat64(metrics.CronJobRunsTotal.WithLabelValues("ingest", "success")); got != 2 {
		t.Errorf("expected 2 successful runs, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.CronJobRunsTotal.WithLabelValues("ingest", "failure")); got != 1 {
		t.Errorf("expected 1 failed run, got %f", got)
	}

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_worker_cron_job_duration_seconds" {
			if mf.GetMetric()[0].GetHistogram().GetSampleCount() != 3 {
				t.Errorf("expected 3 duration observations, got %d", mf.GetMetric()[0].GetHistogram().GetSampleCount())
			}
		}
	}

	if got := testutil.ToFloat64(metrics.CronJobItemsProcessedTotal.WithLabelValues("ingest")); got != 22 {
		t.Errorf("expected 22 total items, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.CronJobLastSuccessTimestamp.WithLabelValues("ingest")); got <= 0 {
		t.Errorf("expected positive last success timestamp, got %f", got)
	}
}

func TestWorkerMetrics_ConcurrentAccess(t *testing.T) {
	metrics, _ := newIsolatedMetrics()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			metrics.RecordJobRun("score", "success")
			metrics.RecordJobDuration("score", 10.0)
			metrics.RecordItemsProcessed("score", 1)
			metrics.RecordLastSuccess("score")
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if got := testutil.ToFloat64(metrics.CronJobRunsTotal.WithLabelValues("score", "success")); got != 10 {
		t.Errorf("expected 10 successful runs, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.CronJobItemsProcessedTotal.WithLabelValues("score")); got != 10 {
		t.Errorf("expected 10 total items, got %f", got)
	}
}
