package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is the simple per-IP sliding window limiter guarding the
// token endpoint. The richer tiered limiters (ratelimit_ip.go,
// ratelimit_user.go) cover the authenticated API; this one needs no
// store, metrics, or circuit breaker because the auth endpoint's limit is
// small and its state fits a map.
type RateLimiter struct {
	limit       int
	window      time.Duration
	ipExtractor IPExtractor

	mu       sync.Mutex
	requests map[string][]time.Time
}

// NewRateLimiter builds a limiter allowing limit requests per IP per
// window, using ipExtractor to identify the client.
func NewRateLimiter(limit int, window time.Duration, ipExtractor IPExtractor) *RateLimiter {
	return &RateLimiter{
		limit:       limit,
		window:      window,
		ipExtractor: ipExtractor,
		requests:    make(map[string][]time.Time),
	}
}

// Middleware rejects requests over the limit with 429. A failed IP
// extraction falls back to RemoteAddr; if even that fails the request is
// rejected with 500 rather than limited under a shared bogus key.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, err := rl.ipExtractor.ExtractIP(r)
		if err != nil {
			slog.Warn("rate limiter: IP extraction failed, using RemoteAddr fallback",
				slog.String("error", err.Error()),
				slog.String("remote_addr", r.RemoteAddr))
			ip, err = extractIPFromAddr(r.RemoteAddr)
			if err != nil {
				slog.Error("rate limiter: RemoteAddr extraction failed",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
		}

		if !rl.allow(ip) {
			slog.Warn("rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
				slog.Int("limit", rl.limit),
				slog.Duration("window", rl.window))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow prunes expired timestamps for ip and admits the request if the
// in-window count is below the limit.
func (rl *RateLimiter) allow(ip string) bool {
	now := time.Now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	valid := rl.requests[ip][:0]
	for _, ts := range rl.requests[ip] {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[ip] = valid
		return false
	}

	rl.requests[ip] = append(valid, now)
	return true
}

// CleanupExpired drops IPs whose requests have all aged out. Run it
// periodically so idle IPs do not accumulate.
func (rl *RateLimiter) CleanupExpired() {
	cutoff := time.Now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, timestamps := range rl.requests {
		valid := timestamps[:0]
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				valid = append(valid, ts)
			}
		}
		if len(valid) == 0 {
			delete(rl.requests, ip)
		} else {
			rl.requests[ip] = valid
		}
	}

	slog.Debug("rate limiter: cleanup completed", slog.Int("active_ips", len(rl.requests)))
}
