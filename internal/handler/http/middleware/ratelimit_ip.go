package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"newsbot/pkg/ratelimit"
)

// IPRateLimiterConfig tunes the per-IP limiter guarding the whole API
// surface, authenticated or not.
type IPRateLimiterConfig struct {
	// Limit per IP per Window. Defaults: 100 per minute.
	Limit  int
	Window time.Duration

	// Enabled off makes the middleware a pass-through.
	Enabled bool

	// Degradation, when set, scales Limit by the current degradation
	// level; a level of disabled waves requests through.
	Degradation *DegradationManager
}

// DefaultIPRateLimiterConfig returns 100 requests per minute, enabled.
func DefaultIPRateLimiterConfig() IPRateLimiterConfig {
	return IPRateLimiterConfig{
		Limit:   100,
		Window:  time.Minute,
		Enabled: true,
	}
}

// IPRateLimiter is the HTTP adapter over pkg/ratelimit for per-IP
// limiting: extract the client IP, run the sliding window through the
// circuit breaker, answer 429 with X-RateLimit-* headers past the limit.
// Every failure mode fails open — a broken limiter must not take the API
// down with it.
type IPRateLimiter struct {
	config         IPRateLimiterConfig
	ipExtractor    IPExtractor
	store          ratelimit.RateLimitStore
	algorithm      ratelimit.RateLimitAlgorithm
	metrics        ratelimit.RateLimitMetrics
	circuitBreaker *ratelimit.CircuitBreaker
}

// NewIPRateLimiter builds the limiter, defaulting zero limit/window.
func NewIPRateLimiter(
	config IPRateLimiterConfig,
	ipExtractor IPExtractor,
	store ratelimit.RateLimitStore,
	algorithm ratelimit.RateLimitAlgorithm,
	metrics ratelimit.RateLimitMetrics,
	circuitBreaker *ratelimit.CircuitBreaker,
) *IPRateLimiter {
	if config.Limit <= 0 {
		config.Limit = 100
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	return &IPRateLimiter{
		config:         config,
		ipExtractor:    ipExtractor,
		store:          store,
		algorithm:      algorithm,
		metrics:        metrics,
		circuitBreaker: circuitBreaker,
	}
}

// Middleware returns the enforcing handler wrapper.
func (rl *IPRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			ip, err := rl.ipExtractor.ExtractIP(r)
			if err != nil {
				slog.Error("IP rate limiter: failed to extract IP, allowing request",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("path", r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			// The degradation manager follows the breaker's state as
			// observed here and scales the limit for this check.
			limit := rl.config.Limit
			if rl.config.Degradation != nil {
				if rl.circuitBreaker != nil {
					rl.config.Degradation.ObserveCircuit(rl.circuitBreaker.IsOpen())
				}
				limit = rl.config.Degradation.AdjustLimits(limit)
				if limit == 0 {
					next.ServeHTTP(w, r)
					return
				}
			}

			if rl.circuitBreaker != nil && rl.circuitBreaker.IsOpen() {
				slog.Warn("IP rate limiter: circuit breaker open, allowing request",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			decision, err := rl.checkRateLimit(r, ip, limit)
			if rl.metrics != nil {
				rl.metrics.RecordCheckDuration("ip", time.Since(start))
			}
			if err != nil || decision == nil {
				if err != nil {
					slog.Error("IP rate limiter: check failed, allowing request (fail-open)",
						slog.String("error", err.Error()),
						slog.String("ip", ip),
						slog.String("path", r.URL.Path))
				}
				next.ServeHTTP(w, r)
				return
			}

			slog.Debug("rate limit check completed",
				slog.String("limiter_type", "ip"),
				slog.String("key", ip),
				slog.Int("current", decision.Limit-decision.Remaining),
				slog.Int("limit", decision.Limit),
				slog.Duration("window", rl.config.Window),
				slog.Bool("allowed", decision.Allowed),
				slog.String("path", r.URL.Path))

			rl.setRateLimitHeaders(w, decision)

			if decision.IsDenied() {
				rl.writeRateLimitError(w, r, decision)
				return
			}

			if rl.metrics != nil {
				rl.metrics.RecordAllowed("ip", r.URL.Path)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkRateLimit runs the algorithm under the circuit breaker (when
// configured) with the degradation-adjusted limit.
func (rl *IPRateLimiter) checkRateLimit(r *http.Request, ip string, limit int) (*ratelimit.RateLimitDecision, error) {
	var decision *ratelimit.RateLimitDecision
	check := func() error {
		var err error
		decision, err = rl.algorithm.IsAllowed(r.Context(), ip, rl.store, limit, rl.config.Window)
		return err
	}

	if rl.circuitBreaker != nil {
		if err := rl.circuitBreaker.Execute(check); err != nil {
			return nil, err
		}
	} else if err := check(); err != nil {
		return nil, err
	}

	if decision != nil {
		decision.LimiterType = "ip"
	}
	return decision, nil
}

func (rl *IPRateLimiter) setRateLimitHeaders(w http.ResponseWriter, decision *ratelimit.RateLimitDecision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAtUnix(), 10))
	w.Header().Set("X-RateLimit-Type", "ip")
}

// writeRateLimitError answers 429 with Retry-After and a JSON body.
func (rl *IPRateLimiter) writeRateLimitError(w http.ResponseWriter, r *http.Request, decision *ratelimit.RateLimitDecision) {
	retryAfter := decision.RetryAfterSeconds()
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	response := map[string]interface{}{
		"error":       "rate_limit_exceeded",
		"message":     "Too many requests from this IP address",
		"retry_after": retryAfter,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("IP rate limiter: failed to encode JSON response",
			slog.String("error", err.Error()))
	}

	if rl.metrics != nil {
		rl.metrics.RecordDenied("ip", r.URL.Path)
	}

	slog.Warn("rate limit exceeded",
		slog.String("limiter_type", "ip"),
		slog.String("key", decision.Key),
		slog.Int("current", decision.Limit-decision.Remaining),
		slog.Int("limit", decision.Limit),
		slog.Int64("retry_after", retryAfter),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method))
}
