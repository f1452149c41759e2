package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"newsbot/pkg/ratelimit"
)

// UserExtractor resolves the authenticated caller and their limit tier
// from the request context.
type UserExtractor interface {
	ExtractUser(ctx context.Context) (userID string, tier ratelimit.UserTier, ok bool)
}

// RoleTierExtractor reads the identity and role the Authz middleware
// stored in the request context, via injected accessors so this package
// does not import the auth package. The JWT role maps onto a limit tier:
// admin and viewer directly, anything unrecognized to basic.
type RoleTierExtractor struct {
	// User returns the caller's identity (email) from the context.
	User func(ctx context.Context) (string, bool)

	// Role returns the caller's role from the context; nil means every
	// caller lands on TierBasic.
	Role func(ctx context.Context) (string, bool)
}

// ExtractUser implements UserExtractor.
func (e *RoleTierExtractor) ExtractUser(ctx context.Context) (string, ratelimit.UserTier, bool) {
	if e.User == nil {
		return "", "", false
	}
	userID, ok := e.User(ctx)
	if !ok || userID == "" {
		return "", "", false
	}

	tier := ratelimit.TierBasic
	if e.Role != nil {
		if role, ok := e.Role(ctx); ok {
			switch role {
			case "admin":
				tier = ratelimit.TierAdmin
			case "viewer":
				tier = ratelimit.TierViewer
			}
		}
	}
	return userID, tier, true
}

// UserRateLimiterConfig wires the per-user limiter.
type UserRateLimiterConfig struct {
	Store          ratelimit.RateLimitStore
	Algorithm      ratelimit.RateLimitAlgorithm
	Metrics        ratelimit.RateLimitMetrics
	CircuitBreaker *ratelimit.CircuitBreaker

	// UserExtractor resolves the caller; see RoleTierExtractor.
	UserExtractor UserExtractor

	// TierLimits override the default per tier.
	TierLimits map[ratelimit.UserTier]TierLimit

	// DefaultLimit/DefaultWindow apply to tiers without an override.
	// Defaults: 1000 per hour.
	DefaultLimit  int
	DefaultWindow time.Duration

	// LimitUnauthenticated buckets caller-less requests under one
	// "anonymous" viewer-tier key instead of passing them through. Off
	// by default: anonymous traffic only reaches public endpoints,
	// which the per-IP limiter already covers.
	LimitUnauthenticated bool

	// Degradation, when set, scales the tier limit by the current
	// degradation level; a level of disabled waves requests through.
	Degradation *DegradationManager

	// Clock is for tests; nil means SystemClock.
	Clock ratelimit.Clock
}

// TierLimit is one tier's budget.
type TierLimit struct {
	Limit  int
	Window time.Duration
}

// UserRateLimiter enforces per-user budgets keyed by a hash of the
// caller's identity, with the limit chosen by the caller's role tier.
// Runs after Authz in the protected chain, so a caller is normally
// always present. Fails open on limiter errors, like the IP limiter.
type UserRateLimiter struct {
	config UserRateLimiterConfig
}

// NewUserRateLimiter builds the limiter, defaulting zero fields.
func NewUserRateLimiter(config UserRateLimiterConfig) *UserRateLimiter {
	if config.DefaultLimit == 0 {
		config.DefaultLimit = 1000
	}
	if config.DefaultWindow == 0 {
		config.DefaultWindow = time.Hour
	}
	if config.Clock == nil {
		config.Clock = &ratelimit.SystemClock{}
	}
	return &UserRateLimiter{config: config}
}

// Middleware returns the enforcing handler wrapper.
func (rl *UserRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, tier, ok := rl.config.UserExtractor.ExtractUser(r.Context())
			if !ok {
				if !rl.config.LimitUnauthenticated {
					slog.Debug("user rate limiter: skipping unauthenticated request",
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method))
					next.ServeHTTP(w, r)
					return
				}
				// One shared bucket at the most restrictive tier.
				userID = "anonymous"
				tier = ratelimit.TierViewer
			}

			limit, window := rl.tierLimit(tier)

			if rl.config.Degradation != nil {
				if rl.config.CircuitBreaker != nil {
					rl.config.Degradation.ObserveCircuit(rl.config.CircuitBreaker.IsOpen())
				}
				limit = rl.config.Degradation.AdjustLimits(limit)
				if limit == 0 {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Identities are hashed before they become store keys, so a
			// memory dump of the limiter leaks no addresses.
			hashedUserID := hashUserID(userID)

			startTime := rl.config.Clock.Now()
			var decision *ratelimit.RateLimitDecision
			circuitErr := rl.config.CircuitBreaker.Execute(func() error {
				var err error
				decision, err = rl.config.Algorithm.IsAllowed(
					r.Context(), hashedUserID, rl.config.Store, limit, window)
				return err
			})
			rl.config.Metrics.RecordCheckDuration("user", rl.config.Clock.Now().Sub(startTime))

			if rl.config.CircuitBreaker.IsOpen() {
				slog.Warn("user rate limiter: circuit breaker open, allowing request",
					slog.String("user_hash", hashedUserID[:16]),
					slog.String("tier", tier.String()),
					slog.String("path", r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}
			if circuitErr != nil || decision == nil {
				if circuitErr != nil {
					slog.Error("user rate limiter: check failed, allowing request (fail-open)",
						slog.String("error", circuitErr.Error()),
						slog.String("user_hash", hashedUserID[:16]),
						slog.String("tier", tier.String()))
				}
				next.ServeHTTP(w, r)
				return
			}

			decision.LimiterType = "user"

			slog.Debug("rate limit check completed",
				slog.String("limiter_type", "user"),
				slog.String("key", hashedUserID[:16]),
				slog.String("tier", tier.String()),
				slog.Int("current", decision.Limit-decision.Remaining),
				slog.Int("limit", decision.Limit),
				slog.Duration("window", window),
				slog.Bool("allowed", decision.Allowed),
				slog.String("path", r.URL.Path))

			rl.setRateLimitHeaders(w, decision)

			if !decision.Allowed {
				rl.config.Metrics.RecordDenied("user", r.URL.Path)
				slog.Warn("rate limit exceeded",
					slog.String("limiter_type", "user"),
					slog.String("key", hashedUserID[:16]),
					slog.String("tier", tier.String()),
					slog.Int("current", decision.Limit-decision.Remaining),
					slog.Int("limit", decision.Limit),
					slog.Int64("retry_after", decision.RetryAfterSeconds()),
					slog.String("path", r.URL.Path),
					slog.String("method", r.Method))
				rl.writeRateLimitError(w, decision, window)
				return
			}

			rl.config.Metrics.RecordAllowed("user", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}

// tierLimit returns the tier's budget, or the default.
func (rl *UserRateLimiter) tierLimit(tier ratelimit.UserTier) (int, time.Duration) {
	if tierLimit, ok := rl.config.TierLimits[tier]; ok {
		return tierLimit.Limit, tierLimit.Window
	}
	return rl.config.DefaultLimit, rl.config.DefaultWindow
}

func (rl *UserRateLimiter) setRateLimitHeaders(w http.ResponseWriter, decision *ratelimit.RateLimitDecision) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", decision.ResetAtUnix()))
	w.Header().Set("X-RateLimit-Type", decision.LimiterType)
}

// writeRateLimitError answers 429 with Retry-After and a JSON body
// naming the window that was exhausted.
func (rl *UserRateLimiter) writeRateLimitError(w http.ResponseWriter, decision *ratelimit.RateLimitDecision, window time.Duration) {
	retryAfter := decision.RetryAfterSeconds()
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	errorBody := fmt.Sprintf(`{
  "error": "rate_limit_exceeded",
  "message": "You have exceeded your request quota. Please try again in %d seconds.",
  "retry_after_seconds": %d,
  "limit": %d,
  "window": "%s"
}`, retryAfter, retryAfter, decision.Limit, window.String())

	if _, err := w.Write([]byte(errorBody)); err != nil {
		slog.Error("user rate limiter: failed to write error response",
			slog.String("error", err.Error()))
	}
}

// hashUserID hex-encodes a SHA-256 of the identity: deterministic per
// caller, reversible by nobody.
func hashUserID(userID string) string {
	hash := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(hash[:])
}

// NewDefaultTierLimits returns the per-hour budgets for the roles the
// API issues (admin, viewer) plus the intermediate tiers the config
// loader can still assign.
func NewDefaultTierLimits() map[ratelimit.UserTier]TierLimit {
	return map[ratelimit.UserTier]TierLimit{
		ratelimit.TierAdmin:   {Limit: 10000, Window: time.Hour},
		ratelimit.TierPremium: {Limit: 5000, Window: time.Hour},
		ratelimit.TierBasic:   {Limit: 1000, Window: time.Hour},
		ratelimit.TierViewer:  {Limit: 500, Window: time.Hour},
	}
}
