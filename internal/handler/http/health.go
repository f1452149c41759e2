// Package http provides the API's HTTP surface: handler registration for
// signals, briefings, feedback, and the source registry, plus health
// probes, metrics collection, authentication, and middleware.
package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"newsbot/pkg/ratelimit"
)

// HealthResponse is the /health JSON body.
type HealthResponse struct {
	Status    string                 `json:"status"` // healthy | unhealthy
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus is one named check inside HealthResponse.
type CheckStatus struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RateLimiterHealthInfo reports one limiter's internals.
type RateLimiterHealthInfo struct {
	ActiveKeys       int    `json:"active_keys"`
	MemoryBytes      int64  `json:"memory_bytes"`
	CircuitBreaker   string `json:"circuit_breaker"`
	DegradationLevel string `json:"degradation_level"`
}

// CSPHealthInfo reports the CSP middleware's configuration.
type CSPHealthInfo struct {
	Enabled    bool `json:"enabled"`
	ReportOnly bool `json:"report_only"`
}

// HealthHandler serves /health: a database check that gates the overall
// status, plus informational rate limiter and CSP sections when those
// subsystems are wired in.
type HealthHandler struct {
	DB      *sql.DB
	Version string

	// Rate limiter internals (optional).
	IPRateLimiterStore     ratelimit.RateLimitStore
	UserRateLimiterStore   ratelimit.RateLimitStore
	IPCircuitBreaker       *ratelimit.CircuitBreaker
	UserCircuitBreaker     *ratelimit.CircuitBreaker
	IPDegradationManager   DegradationManager
	UserDegradationManager DegradationManager
	RateLimiterEnabled     bool

	// CSP status (optional).
	CSPEnabled    bool
	CSPReportOnly bool
}

// DegradationManager is the read-only view of a limiter's degradation
// state this handler needs; the concrete manager lives in the middleware
// package and is adapted in at wiring time.
type DegradationManager interface {
	GetLevel() DegradationLevel
}

// DegradationLevel names a degradation state.
type DegradationLevel interface {
	String() string
}

// ServeHTTP answers 200 with per-check detail while healthy, 503 when
// the database check fails. Limiter and CSP sections are informational
// only — an open breaker is a fail-open operating mode, not an outage.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]CheckStatus)
	allHealthy := true

	if h.DB != nil {
		dbCheck := h.checkDatabase(ctx)
		checks["database"] = dbCheck
		if dbCheck.Status == "unhealthy" {
			allHealthy = false
		}
	} else {
		checks["database"] = CheckStatus{Status: "unhealthy", Message: "not configured"}
		allHealthy = false
	}

	if h.RateLimiterEnabled {
		checks["rate_limiter"] = h.checkRateLimiter(ctx)
	}
	if h.CSPEnabled {
		checks["csp"] = h.checkCSP()
	}

	status, statusCode := "healthy", http.StatusOK
	if !allHealthy {
		status, statusCode = "unhealthy", http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("health: failed to encode response: %v", err)
	}
}

// checkDatabase pings and reports pool statistics. Utilization at or
// past 80%, or an unbounded pool, reads as degraded — a warning, not a
// failure.
func (h *HealthHandler) checkDatabase(ctx context.Context) CheckStatus {
	if err := h.DB.PingContext(ctx); err != nil {
		return CheckStatus{Status: "unhealthy", Message: err.Error()}
	}

	stats := h.DB.Stats()
	details := map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_idle_time_closed": stats.MaxIdleTimeClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}

	if stats.MaxOpenConnections == 0 {
		return CheckStatus{
			Status:  "degraded",
			Message: "connection pool max connections not configured",
			Details: details,
		}
	}

	utilizationPercent := float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100
	details["utilization_percent"] = utilizationPercent
	if utilizationPercent >= 80.0 {
		return CheckStatus{
			Status:  "degraded",
			Message: "connection pool utilization above 80%",
			Details: details,
		}
	}

	return CheckStatus{Status: "healthy", Details: details}
}

// limiterInfo collects one limiter's store, breaker, and degradation
// state.
func limiterInfo(ctx context.Context, store ratelimit.RateLimitStore, breaker *ratelimit.CircuitBreaker, degradation DegradationManager) RateLimiterHealthInfo {
	info := RateLimiterHealthInfo{
		CircuitBreaker:   "not_configured",
		DegradationLevel: "not_configured",
	}
	if keyCount, err := store.KeyCount(ctx); err == nil {
		info.ActiveKeys = keyCount
	}
	if memUsage, err := store.MemoryUsage(ctx); err == nil {
		info.MemoryBytes = memUsage
	}
	if breaker != nil {
		info.CircuitBreaker = breaker.State().String()
	}
	if degradation != nil {
		info.DegradationLevel = degradation.GetLevel().String()
	}
	return info
}

// checkRateLimiter is always "healthy": an open breaker or a degraded
// level is the limiter coping, not the service failing.
func (h *HealthHandler) checkRateLimiter(ctx context.Context) CheckStatus {
	details := make(map[string]interface{})
	if h.IPRateLimiterStore != nil {
		details["ip"] = limiterInfo(ctx, h.IPRateLimiterStore, h.IPCircuitBreaker, h.IPDegradationManager)
	}
	if h.UserRateLimiterStore != nil {
		details["user"] = limiterInfo(ctx, h.UserRateLimiterStore, h.UserCircuitBreaker, h.UserDegradationManager)
	}
	return CheckStatus{Status: "healthy", Details: details}
}

func (h *HealthHandler) checkCSP() CheckStatus {
	return CheckStatus{
		Status: "healthy",
		Details: map[string]interface{}{
			"config": CSPHealthInfo{Enabled: h.CSPEnabled, ReportOnly: h.CSPReportOnly},
		},
	}
}

// ReadyHandler is the readiness probe: 200 once the database answers a
// ping.
type ReadyHandler struct {
	DB *sql.DB
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.DB == nil {
		http.Error(w, "database not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.DB.PingContext(ctx); err != nil {
		http.Error(w, "database not ready: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ready")); err != nil {
		log.Printf("ready: failed to write response: %v", err)
	}
}

// LiveHandler is the liveness probe: 200 whenever the process can
// answer at all.
type LiveHandler struct{}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("alive")); err != nil {
		log.Printf("alive: failed to write response: %v", err)
	}
}
