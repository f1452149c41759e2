package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SlidingWindowAlgorithm counts individual request timestamps inside a
// moving window, avoiding the boundary bursts of fixed windows. It also
// guards against the system clock stepping backwards: per key, the last
// seen timestamp wins over an earlier "now", so a clock adjustment cannot
// be used to reset a window.
type SlidingWindowAlgorithm struct {
	clock Clock

	mu             sync.Mutex
	lastTimestamps map[string]time.Time
	windowDuration time.Duration
}

// NewSlidingWindowAlgorithm builds the algorithm; a nil clock means
// SystemClock.
func NewSlidingWindowAlgorithm(clock Clock) *SlidingWindowAlgorithm {
	if clock == nil {
		clock = &SystemClock{}
	}
	return &SlidingWindowAlgorithm{
		clock:          clock,
		lastTimestamps: make(map[string]time.Time),
	}
}

// IsAllowed admits the request if fewer than limit requests fall inside
// the window ending now. When the store supports atomic check-and-add the
// count and insert happen under one lock; otherwise the two-step fallback
// is used.
func (a *SlidingWindowAlgorithm) IsAllowed(
	ctx context.Context,
	key string,
	store RateLimitStore,
	limit int,
	window time.Duration,
) (*RateLimitDecision, error) {
	now := a.validTimestamp(key, window)
	cutoff := now.Add(-window)
	resetAt := now.Add(window)

	if atomicStore, ok := store.(AtomicRateLimitStore); ok {
		allowed, count, err := atomicStore.CheckAndAddRequest(ctx, key, now, cutoff, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to check and add request: %w", err)
		}
		if allowed {
			return NewAllowedDecision(key, "unknown", limit, limit-count, resetAt), nil
		}
		return a.denied(key, limit, now, resetAt), nil
	}

	count, err := store.GetRequestCount(ctx, key, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get request count: %w", err)
	}
	if count < limit {
		if err := store.AddRequest(ctx, key, now); err != nil {
			return nil, fmt.Errorf("failed to add request: %w", err)
		}
		return NewAllowedDecision(key, "unknown", limit, limit-count-1, resetAt), nil
	}
	return a.denied(key, limit, now, resetAt), nil
}

func (a *SlidingWindowAlgorithm) denied(key string, limit int, now, resetAt time.Time) *RateLimitDecision {
	decision := NewDeniedDecision(key, "unknown", limit, resetAt)
	decision.RetryAfter = resetAt.Sub(now)
	return decision
}

// GetWindowDuration reports the window last passed to IsAllowed.
func (a *SlidingWindowAlgorithm) GetWindowDuration() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.windowDuration
}

// validTimestamp returns now, unless the clock has gone backwards for
// this key, in which case the last seen timestamp is reused.
func (a *SlidingWindowAlgorithm) validTimestamp(key string, window time.Duration) time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.windowDuration = window

	now := a.clock.Now()
	if lastSeen, ok := a.lastTimestamps[key]; ok && now.Before(lastSeen) {
		slog.Warn("clock skew detected, using last valid timestamp",
			slog.String("key", key),
			slog.Time("now", now),
			slog.Time("last_seen", lastSeen),
			slog.Duration("skew", lastSeen.Sub(now)))
		return lastSeen
	}
	a.lastTimestamps[key] = now
	return now
}

// CleanupExpiredTimestamps drops clock-skew tracking entries older than
// maxAge and returns how many were removed. Called from the periodic
// cleanup loop alongside store cleanup.
func (a *SlidingWindowAlgorithm) CleanupExpiredTimestamps(maxAge time.Duration) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.clock.Now().Add(-maxAge)
	removed := 0
	for key, ts := range a.lastTimestamps {
		if ts.Before(cutoff) {
			delete(a.lastTimestamps, key)
			removed++
		}
	}
	return removed
}

// GetTrackedKeysCount returns the number of keys tracked for clock-skew
// protection.
func (a *SlidingWindowAlgorithm) GetTrackedKeysCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.lastTimestamps)
}
