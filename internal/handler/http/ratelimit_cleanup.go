package http

import (
	"context"
	"log/slog"
	"time"

	"newsbot/internal/handler/http/middleware"
	"newsbot/pkg/config"
	"newsbot/pkg/ratelimit"
)

// StartRateLimitCleanupLegacy drives the auth-endpoint limiter's own
// CleanupExpired on the shared cadence. Blocks until ctx is canceled;
// run it in a goroutine.
func StartRateLimitCleanupLegacy(
	ctx context.Context,
	limiter *middleware.RateLimiter,
	interval time.Duration,
	limiterType string,
) {
	if limiter == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("rate limit cleanup started",
		slog.String("limiter_type", limiterType),
		slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			slog.Info("rate limit cleanup stopped", slog.String("limiter_type", limiterType))
			return
		case <-ticker.C:
			limiter.CleanupExpired()
		}
	}
}

// StartRateLimitCleanup periodically drops expired timestamps from an
// in-memory limiter store so idle keys don't accumulate. The cutoff is
// 2x the window, leaving the live window untouched under clock skew and
// in-flight checks. Blocks until ctx is canceled; run it in a goroutine.
func StartRateLimitCleanup(
	ctx context.Context,
	store *ratelimit.InMemoryRateLimitStore,
	interval time.Duration,
	windowDuration time.Duration,
	limiterType string,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("rate limit cleanup started",
		slog.String("limiter_type", limiterType),
		slog.Duration("interval", interval),
		slog.Duration("window_duration", windowDuration))

	for {
		select {
		case <-ctx.Done():
			slog.Info("rate limit cleanup stopped", slog.String("limiter_type", limiterType))
			return

		case <-ticker.C:
			cutoff := time.Now().Add(-2 * windowDuration)

			keysBefore, err := store.KeyCount(ctx)
			if err != nil {
				slog.Error("failed to get key count before cleanup",
					slog.String("limiter_type", limiterType), slog.Any("error", err))
				continue
			}
			memoryBefore, err := store.MemoryUsage(ctx)
			if err != nil {
				slog.Error("failed to get memory usage before cleanup",
					slog.String("limiter_type", limiterType), slog.Any("error", err))
				continue
			}

			if err := store.Cleanup(ctx, cutoff); err != nil {
				slog.Error("rate limit cleanup failed",
					slog.String("limiter_type", limiterType), slog.Any("error", err))
				continue
			}

			keysAfter, _ := store.KeyCount(ctx)
			memoryAfter, _ := store.MemoryUsage(ctx)

			slog.Debug("rate limit cleanup completed",
				slog.String("limiter_type", limiterType),
				slog.Int("keys_before", keysBefore),
				slog.Int("keys_after", keysAfter),
				slog.Int("keys_removed", keysBefore-keysAfter),
				slog.Int64("memory_before_bytes", memoryBefore),
				slog.Int64("memory_after_bytes", memoryAfter))
		}
	}
}

// CleanupConfig sets the cleanup loop's cadence.
type CleanupConfig struct {
	// Interval between cleanup passes.
	Interval time.Duration

	// WindowDuration is the limiter window; the cutoff is twice it.
	WindowDuration time.Duration

	// LimiterType labels log lines: "ip", "user", "auth".
	LimiterType string
}

// DefaultCleanupInterval applies when RATELIMIT_CLEANUP_INTERVAL is
// unset.
const DefaultCleanupInterval = 5 * time.Minute

// LoadCleanupConfigFromEnv reads RATELIMIT_CLEANUP_INTERVAL, falling
// back to the default on absent or malformed values.
func LoadCleanupConfigFromEnv() CleanupConfig {
	cfg := CleanupConfig{
		Interval: DefaultCleanupInterval,
	}
	cfg.Interval = config.GetEnvDuration("RATELIMIT_CLEANUP_INTERVAL", DefaultCleanupInterval)
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultCleanupInterval
	}
	return cfg
}
