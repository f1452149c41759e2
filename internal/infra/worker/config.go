package worker

import (
	"newsbot/internal/pkg/config"
	"fmt"
	"log/slog"
	"time"
)

// WorkerConfig holds the scheduler's cadence, batch, and retry settings
// for all six pipeline queues (ingest, extract, embed, score, summarise,
// email). Triggers run in UTC; the four polling queues are
// expressed as "every N minutes" intervals, and the two daily queues
// (briefing generation, email delivery) as fixed cron expressions.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have sensible defaults and validation rules so the worker
// can always start, even with invalid or missing configuration.
type WorkerConfig struct {
	// Timezone is the IANA timezone name the cron scheduler runs in.
	// Default: "UTC" — every periodic trigger is defined in UTC.
	Timezone string

	// IngestionIntervalMinutes is how often every enabled source is
	// re-ingested. Default: 30.
	IngestionIntervalMinutes int
	// ExtractIntervalMinutes is how often pending extraction runs.
	// Default: 10.
	ExtractIntervalMinutes int
	// EmbedIntervalMinutes is how often pending embedding (and the
	// semantic clustering pass that follows it) runs. Default: 15.
	EmbedIntervalMinutes int
	// ScoreIntervalMinutes is how often pending scoring runs. Default: 15.
	ScoreIntervalMinutes int
	// BriefingCronSchedule is a five-field cron expression for daily
	// briefing generation. Default: "50 6 * * *" (06:50 UTC).
	BriefingCronSchedule string
	// EmailCronSchedule is a five-field cron expression for the daily
	// delivery tick. Each tick passes its own UTC "HH:MM" to DeliverDue,
	// which mails only users whose EmailTimeUTC equals it exactly, so a
	// user is reached only on a tick at their configured minute.
	// Default: "0 7 * * *" (07:00 UTC).
	EmailCronSchedule string

	// MaxItemsPerSource is loaded from MAX_ITEMS_PER_SOURCE and validated,
	// but the ingest stage does not read it; that stage uses its own
	// ingest.MaxItemsPerSource constant (100). Default: 100.
	MaxItemsPerSource int
	// BatchSize bounds how many items each polling queue (extract, embed,
	// score) processes per tick; overflow waits for the next tick. This
	// is the primary mechanism limiting external API spend. Default: 150.
	BatchSize int

	// MaxRetries bounds how many times a failed stage-level run (cannot
	// fetch a listing, cannot reach the DB) is retried before the
	// scheduler gives up and waits for the next scheduled tick.
	// Default: 3.
	MaxRetries int
	// RetryBackoff is the base delay before a retry; successive retries
	// back off exponentially from this value. Default: 30s.
	RetryBackoff time.Duration
	// TaskTimeLimit is the hard per-tick timeout. Default: 10m.
	TaskTimeLimit time.Duration
	// TaskSoftTimeLimit is the cooperative-cancellation warning point; a
	// running tick logs a warning once this elapses but is not killed
	// until TaskTimeLimit. Default: 9m.
	TaskSoftTimeLimit time.Duration

	// HealthPort is the port number for the health check HTTP server.
	// Default: 9091.
	HealthPort int
}

// DefaultConfig returns a WorkerConfig matching §4.7's default cadences.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		Timezone:                 "UTC",
		IngestionIntervalMinutes: 30,
		ExtractIntervalMinutes:   10,
		EmbedIntervalMinutes:     15,
		ScoreIntervalMinutes:     15,
		BriefingCronSchedule:     "50 6 * * *",
		EmailCronSchedule:        "0 7 * * *",
		MaxItemsPerSource:        100,
		BatchSize:                150,
		MaxRetries:               3,
		RetryBackoff:             30 * time.Second,
		TaskTimeLimit:            10 * time.Minute,
		TaskSoftTimeLimit:        9 * time.Minute,
		HealthPort:               9091,
	}
}

// IngestCronSchedule renders the ingest queue's interval as a five-field
// cron expression robfig/cron accepts.
func (c *WorkerConfig) IngestCronSchedule() string {
	return everyMinutes(c.IngestionIntervalMinutes)
}

// ExtractCronSchedule renders the extract queue's interval as cron.
func (c *WorkerConfig) ExtractCronSchedule() string {
	return everyMinutes(c.ExtractIntervalMinutes)
}

// EmbedCronSchedule renders the embed/cluster queue's interval as cron.
func (c *WorkerConfig) EmbedCronSchedule() string {
	return everyMinutes(c.EmbedIntervalMinutes)
}

// ScoreCronSchedule renders the score queue's interval as cron.
func (c *WorkerConfig) ScoreCronSchedule() string {
	return everyMinutes(c.ScoreIntervalMinutes)
}

func everyMinutes(n int) string {
	if n <= 0 {
		n = 1
	}
	return fmt.Sprintf("*/%d * * * *", n)
}

// Validate checks if the configuration values are valid, collecting every
// violation rather than stopping at the first.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.IngestionIntervalMinutes, 1, 1440); err != nil {
		errs = append(errs, fmt.Errorf("ingestion interval: %w", err))
	}
	if err := config.ValidateIntRange(c.ExtractIntervalMinutes, 1, 1440); err != nil {
		errs = append(errs, fmt.Errorf("extract interval: %w", err))
	}
	if err := config.ValidateIntRange(c.EmbedIntervalMinutes, 1, 1440); err != nil {
		errs = append(errs, fmt.Errorf("embed interval: %w", err))
	}
	if err := config.ValidateIntRange(c.ScoreIntervalMinutes, 1, 1440); err != nil {
		errs = append(errs, fmt.Errorf("score interval: %w", err))
	}
	if err := config.ValidateCronSchedule(c.BriefingCronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("briefing cron schedule: %w", err))
	}
	if err := config.ValidateCronSchedule(c.EmailCronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("email cron schedule: %w", err))
	}
	if err := config.ValidateIntRange(c.MaxItemsPerSource, 0, 10000); err != nil {
		errs = append(errs, fmt.Errorf("max items per source: %w", err))
	}
	if err := config.ValidateIntRange(c.BatchSize, 1, 10000); err != nil {
		errs = append(errs, fmt.Errorf("batch size: %w", err))
	}
	if err := config.ValidateIntRange(c.MaxRetries, 0, 20); err != nil {
		errs = append(errs, fmt.Errorf("max retries: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.RetryBackoff); err != nil {
		errs = append(errs, fmt.Errorf("retry backoff: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.TaskTimeLimit); err != nil {
		errs = append(errs, fmt.Errorf("task time limit: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.TaskSoftTimeLimit); err != nil {
		errs = append(errs, fmt.Errorf("task soft time limit: %w", err))
	}
	if c.TaskSoftTimeLimit > c.TaskTimeLimit {
		errs = append(errs, fmt.Errorf("task soft time limit %v exceeds task time limit %v", c.TaskSoftTimeLimit, c.TaskTimeLimit))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the scheduler configuration from environment
// variables with validation and automatic fallback to default values on
// failure (fail-open strategy): every field is loaded independently, and
// an invalid value falls back to its default with a logged warning and a
// recorded metric rather than preventing the worker from starting.
//
// Environment variables:
//   - WORKER_TIMEZONE
//   - INGESTION_INTERVAL_MINUTES
//   - EXTRACT_INTERVAL_MINUTES
//   - EMBED_INTERVAL_MINUTES
//   - SCORE_INTERVAL_MINUTES
//   - BRIEFING_CRON_SCHEDULE
//   - EMAIL_CRON_SCHEDULE
//   - MAX_ITEMS_PER_SOURCE
//   - WORKER_BATCH_SIZE
//   - WORKER_MAX_RETRIES
//   - WORKER_RETRY_BACKOFF
//   - WORKER_TASK_TIME_LIMIT
//   - WORKER_TASK_SOFT_TIME_LIMIT
//   - WORKER_HEALTH_PORT
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	apply := func(field, envKey string, result config.ConfigLoadResult) {
		if !result.FallbackApplied {
			return
		}
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		for _, warning := range result.Warnings {
			logger.Warn("configuration fallback applied",
				slog.String("field", field), slog.String("env_key", envKey), slog.String("warning", warning))
		}
	}

	r := config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = r.Value.(string)
	apply("timezone", "WORKER_TIMEZONE", r)

	ri := config.LoadEnvInt("INGESTION_INTERVAL_MINUTES", cfg.IngestionIntervalMinutes, func(v int) error {
		return config.ValidateIntRange(v, 1, 1440)
	})
	cfg.IngestionIntervalMinutes = ri.Value.(int)
	apply("ingestion_interval_minutes", "INGESTION_INTERVAL_MINUTES", ri)

	ri = config.LoadEnvInt("EXTRACT_INTERVAL_MINUTES", cfg.ExtractIntervalMinutes, func(v int) error {
		return config.ValidateIntRange(v, 1, 1440)
	})
	cfg.ExtractIntervalMinutes = ri.Value.(int)
	apply("extract_interval_minutes", "EXTRACT_INTERVAL_MINUTES", ri)

	ri = config.LoadEnvInt("EMBED_INTERVAL_MINUTES", cfg.EmbedIntervalMinutes, func(v int) error {
		return config.ValidateIntRange(v, 1, 1440)
	})
	cfg.EmbedIntervalMinutes = ri.Value.(int)
	apply("embed_interval_minutes", "EMBED_INTERVAL_MINUTES", ri)

	ri = config.LoadEnvInt("SCORE_INTERVAL_MINUTES", cfg.ScoreIntervalMinutes, func(v int) error {
		return config.ValidateIntRange(v, 1, 1440)
	})
	cfg.ScoreIntervalMinutes = ri.Value.(int)
	apply("score_interval_minutes", "SCORE_INTERVAL_MINUTES", ri)

	r = config.LoadEnvWithFallback("BRIEFING_CRON_SCHEDULE", cfg.BriefingCronSchedule, config.ValidateCronSchedule)
	cfg.BriefingCronSchedule = r.Value.(string)
	apply("briefing_cron_schedule", "BRIEFING_CRON_SCHEDULE", r)

	r = config.LoadEnvWithFallback("EMAIL_CRON_SCHEDULE", cfg.EmailCronSchedule, config.ValidateCronSchedule)
	cfg.EmailCronSchedule = r.Value.(string)
	apply("email_cron_schedule", "EMAIL_CRON_SCHEDULE", r)

	ri = config.LoadEnvInt("MAX_ITEMS_PER_SOURCE", cfg.MaxItemsPerSource, func(v int) error {
		return config.ValidateIntRange(v, 0, 10000)
	})
	cfg.MaxItemsPerSource = ri.Value.(int)
	apply("max_items_per_source", "MAX_ITEMS_PER_SOURCE", ri)

	ri = config.LoadEnvInt("WORKER_BATCH_SIZE", cfg.BatchSize, func(v int) error {
		return config.ValidateIntRange(v, 1, 10000)
	})
	cfg.BatchSize = ri.Value.(int)
	apply("batch_size", "WORKER_BATCH_SIZE", ri)

	ri = config.LoadEnvInt("WORKER_MAX_RETRIES", cfg.MaxRetries, func(v int) error {
		return config.ValidateIntRange(v, 0, 20)
	})
	cfg.MaxRetries = ri.Value.(int)
	apply("max_retries", "WORKER_MAX_RETRIES", ri)

	rd := config.LoadEnvDuration("WORKER_RETRY_BACKOFF", cfg.RetryBackoff, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Second, 10*time.Minute)
	})
	cfg.RetryBackoff = rd.Value.(time.Duration)
	apply("retry_backoff", "WORKER_RETRY_BACKOFF", rd)

	rd = config.LoadEnvDuration("WORKER_TASK_TIME_LIMIT", cfg.TaskTimeLimit, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 1*time.Hour)
	})
	cfg.TaskTimeLimit = rd.Value.(time.Duration)
	apply("task_time_limit", "WORKER_TASK_TIME_LIMIT", rd)

	rd = config.LoadEnvDuration("WORKER_TASK_SOFT_TIME_LIMIT", cfg.TaskSoftTimeLimit, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, cfg.TaskTimeLimit)
	})
	cfg.TaskSoftTimeLimit = rd.Value.(time.Duration)
	apply("task_soft_time_limit", "WORKER_TASK_SOFT_TIME_LIMIT", rd)

	ri = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = ri.Value.(int)
	apply("health_port", "WORKER_HEALTH_PORT", ri)

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
