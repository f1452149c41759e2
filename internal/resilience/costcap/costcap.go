// Package costcap enforces ceilings on costed external calls (embedding
// and LLM requests) using a small Postgres-backed counter table, checked
// before issuing further calls — a cheap-path guard alongside the circuit
// breaker and retry packages, not a replacement for either.
package costcap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/observability/metrics"
)

// Limiter enforces a named budget's ceiling over a Postgres-backed
// (scope, bucket) row, incremented atomically. A single Limiter can be
// shared across callers that each pass their own key (e.g. a user id) to
// Allow, or always pass "" for a budget with no per-caller split.
type Limiter struct {
	db     *sql.DB
	budget string
	limit  int
	window time.Duration
}

// NewHourlyLimiter builds a Limiter bucketed by the current UTC hour,
// enforcing limit calls per hour for the named budget.
func NewHourlyLimiter(db *sql.DB, budget string, limit int) *Limiter {
	return &Limiter{db: db, budget: budget, limit: limit, window: time.Hour}
}

// NewDailyLimiter builds a Limiter bucketed by the current UTC day,
// enforcing limit calls per day for the named budget, optionally split
// per key (see Allow).
func NewDailyLimiter(db *sql.DB, budget string, limit int) *Limiter {
	return &Limiter{db: db, budget: budget, limit: limit, window: 24 * time.Hour}
}

func (l *Limiter) bucket(now time.Time, key string) string {
	now = now.UTC()
	stamp := now.Format("2006-01-02")
	if l.window == time.Hour {
		stamp = now.Format("2006-01-02T15")
	}
	if key == "" {
		return l.budget + "|" + stamp
	}
	return l.budget + "|" + key + "|" + stamp
}

// Allow atomically increments the counter for the current window and
// key and reports whether the resulting count is within limit. key
// scopes the count to a single caller (e.g. "user:42"); pass "" for a
// budget shared across all callers. A rejection still records the
// increment so repeated attempts are visible in the count, and bumps
// metrics.CostCapRejectionsTotal.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	scope := l.budget
	if key != "" {
		scope = l.budget + ":" + key
	}
	bucket := l.bucket(time.Now(), key)

	var count int
	err := l.db.QueryRowContext(ctx, `
INSERT INTO cost_cap_counters (scope, bucket, count)
VALUES ($1, $2, 1)
ON CONFLICT (scope, bucket) DO UPDATE SET count = cost_cap_counters.count + 1
RETURNING count`, scope, bucket).Scan(&count)
	if err != nil {
		return fmt.Errorf("incrementing cost cap counter: %w", err)
	}

	if count > l.limit {
		metrics.CostCapRejectionsTotal.WithLabelValues(scope).Inc()
		return fmt.Errorf("%w: %q at %d/%d for %s", entity.ErrCostCapExceeded, scope, count, l.limit, bucket)
	}
	return nil
}

// Unkeyed adapts a Limiter to the zero-argument CapChecker interface
// implementations in internal/infra/embed and internal/infra/llm expect,
// for budgets with no per-caller split (e.g. embeddings/hour).
type Unkeyed struct {
	limiter *Limiter
}

// NewUnkeyed wraps limiter so its Allow(ctx) error satisfies a
// CapChecker interface with no key parameter.
func NewUnkeyed(limiter *Limiter) Unkeyed {
	return Unkeyed{limiter: limiter}
}

// Allow implements the zero-argument CapChecker shape.
func (u Unkeyed) Allow(ctx context.Context) error {
	return u.limiter.Allow(ctx, "")
}

// Keyed adapts a Limiter to the same zero-argument CapChecker shape for
// budgets split per caller (e.g. LLM calls per user per day), with the
// key fixed at construction.
type Keyed struct {
	limiter *Limiter
	key     string
}

// NewKeyed wraps limiter so its Allow(ctx) error checks and increments
// the counter scoped to key.
func NewKeyed(limiter *Limiter, key string) Keyed {
	return Keyed{limiter: limiter, key: key}
}

// Allow implements the zero-argument CapChecker shape, scoped to key.
func (k Keyed) Allow(ctx context.Context) error {
	return k.limiter.Allow(ctx, k.key)
}
