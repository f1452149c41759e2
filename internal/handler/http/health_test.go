package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"newsbot/pkg/ratelimit"
)

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding health response: %v (%q)", err, rec.Body.String())
	}
	return resp
}

func TestHealthHandler_HealthyDatabase(t *testing.T) {
	db, mock, _ := sqlmock.New(sqlmock.MonitorPingsOption(true))
	defer func() { _ = db.Close() }()
	mock.ExpectPing()

	handler := &HealthHandler{DB: db, Version: "1.2.3"}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Status != "healthy" || resp.Version != "1.2.3" {
		t.Fatalf("response = %+v", resp)
	}
	if _, ok := resp.Checks["database"]; !ok {
		t.Fatal("missing database check")
	}
	if cc := rec.Header().Get("Cache-Control"); cc == "" {
		t.Fatal("health responses must not be cacheable")
	}
}

func TestHealthHandler_NoDatabaseConfigured(t *testing.T) {
	handler := &HealthHandler{Version: "dev"}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if resp := decodeHealth(t, rec); resp.Status != "unhealthy" {
		t.Fatalf("status field = %q", resp.Status)
	}
}

func TestHealthHandler_UnreachableDatabase(t *testing.T) {
	db, mock, _ := sqlmock.New(sqlmock.MonitorPingsOption(true))
	defer func() { _ = db.Close() }()
	mock.ExpectPing().WillReturnError(http.ErrServerClosed)

	handler := &HealthHandler{DB: db, Version: "dev"}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHealthHandler_RateLimiterDetailsReported(t *testing.T) {
	db, mock, _ := sqlmock.New(sqlmock.MonitorPingsOption(true))
	defer func() { _ = db.Close() }()
	mock.ExpectPing()

	store := ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{MaxKeys: 10})
	handler := &HealthHandler{
		DB:                 db,
		Version:            "dev",
		RateLimiterEnabled: true,
		IPRateLimiterStore: store,
		IPCircuitBreaker:   ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{LimiterType: "ip"}),
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	resp := decodeHealth(t, rec)
	check, ok := resp.Checks["rate_limiter"]
	if !ok {
		t.Fatal("missing rate_limiter check")
	}
	// Limiter state is informational, never a failure.
	if check.Status != "healthy" {
		t.Fatalf("rate limiter status = %q, want healthy", check.Status)
	}
	if _, ok := check.Details["ip"]; !ok {
		t.Fatalf("rate limiter details = %v, want ip entry", check.Details)
	}
}

func TestHealthHandler_CSPReported(t *testing.T) {
	db, mock, _ := sqlmock.New(sqlmock.MonitorPingsOption(true))
	defer func() { _ = db.Close() }()
	mock.ExpectPing()

	handler := &HealthHandler{DB: db, Version: "dev", CSPEnabled: true, CSPReportOnly: true}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if _, ok := decodeHealth(t, rec).Checks["csp"]; !ok {
		t.Fatal("missing csp check when CSP is enabled")
	}
}

func TestReadyHandler(t *testing.T) {
	db, mock, _ := sqlmock.New(sqlmock.MonitorPingsOption(true))
	defer func() { _ = db.Close() }()
	mock.ExpectPing()

	rec := httptest.NewRecorder()
	(&ReadyHandler{DB: db}).ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ready" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	(&ReadyHandler{}).ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 without a database", rec.Code)
	}
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	(&LiveHandler{}).ServeHTTP(rec, httptest.NewRequest("GET", "/live", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "alive" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}
