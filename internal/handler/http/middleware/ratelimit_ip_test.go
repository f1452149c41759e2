package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newsbot/pkg/ratelimit"
)

func newIPLimiter(cfg IPRateLimiterConfig, store ratelimit.RateLimitStore, breaker *ratelimit.CircuitBreaker, metrics ratelimit.RateLimitMetrics) *IPRateLimiter {
	return NewIPRateLimiter(cfg, &RemoteAddrExtractor{},
		store, ratelimit.NewSlidingWindowAlgorithm(nil), metrics, breaker)
}

func ipRequest(t *testing.T, handler http.Handler, addr string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/signals", nil)
	req.RemoteAddr = addr
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIPRateLimiter_AllowsAndSetsHeaders(t *testing.T) {
	metrics := &countingMetrics{}
	store := ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{})
	rl := newIPLimiter(IPRateLimiterConfig{Limit: 5, Window: time.Minute, Enabled: true}, store, nil, metrics)
	handler := rl.Middleware()(okHandler(nil))

	rec := ipRequest(t, handler, "203.0.113.9:1234")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Fatalf("X-RateLimit-Limit = %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "4" {
		t.Fatalf("X-RateLimit-Remaining = %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Type"); got != "ip" {
		t.Fatalf("X-RateLimit-Type = %q", got)
	}
	if allowed, _ := metrics.counts(); allowed != 1 {
		t.Fatalf("allowed metric = %d", allowed)
	}
}

func TestIPRateLimiter_DeniesOverLimit(t *testing.T) {
	metrics := &countingMetrics{}
	store := ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{})
	rl := newIPLimiter(IPRateLimiterConfig{Limit: 2, Window: time.Minute, Enabled: true}, store, nil, metrics)
	handler := rl.Middleware()(okHandler(nil))

	ipRequest(t, handler, "203.0.113.9:1")
	ipRequest(t, handler, "203.0.113.9:2")
	rec := ipRequest(t, handler, "203.0.113.9:3")

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("denied response missing Retry-After")
	}
	if _, denied := metrics.counts(); denied != 1 {
		t.Fatalf("denied metric = %d", denied)
	}

	// Another IP still has its own budget.
	if rec := ipRequest(t, handler, "203.0.113.10:1"); rec.Code != http.StatusOK {
		t.Fatalf("other IP status = %d", rec.Code)
	}
}

func TestIPRateLimiter_DisabledPassesThrough(t *testing.T) {
	store := ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{})
	rl := newIPLimiter(IPRateLimiterConfig{Limit: 1, Window: time.Minute, Enabled: false}, store, nil, &countingMetrics{})
	handler := rl.Middleware()(okHandler(nil))

	for i := 0; i < 5; i++ {
		if rec := ipRequest(t, handler, "203.0.113.9:1"); rec.Code != http.StatusOK {
			t.Fatalf("disabled limiter blocked request %d", i)
		}
	}
}

func TestIPRateLimiter_StoreFailureFailsOpen(t *testing.T) {
	called := false
	rl := newIPLimiter(IPRateLimiterConfig{Limit: 1, Window: time.Minute, Enabled: true}, failingStore{}, nil, &countingMetrics{})
	handler := rl.Middleware()(okHandler(&called))

	rec := ipRequest(t, handler, "203.0.113.9:1")

	// Fail-open means the wrapped handler runs, not a bare 200.
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("status=%d called=%v, want the request to pass through", rec.Code, called)
	}
}

func TestIPRateLimiter_UnextractableIPFailsOpen(t *testing.T) {
	called := false
	store := ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{})
	rl := newIPLimiter(IPRateLimiterConfig{Limit: 1, Window: time.Minute, Enabled: true}, store, nil, &countingMetrics{})
	handler := rl.Middleware()(okHandler(&called))

	rec := ipRequest(t, handler, "not-an-addr")
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("status=%d called=%v, want pass-through on extraction failure", rec.Code, called)
	}
}

func TestIPRateLimiter_OpenBreakerPassesThroughAndDegrades(t *testing.T) {
	clock := newStepClock()
	breaker := ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{
		FailureThreshold: 1, RecoveryTimeout: time.Hour, Clock: clock, LimiterType: "ip",
	})
	degradation := NewDegradationManager(DegradationConfig{
		AutoAdjust: true, CooldownPeriod: time.Nanosecond, Clock: clock, LimiterType: "ip",
	})

	called := false
	cfg := IPRateLimiterConfig{Limit: 1, Window: time.Minute, Enabled: true, Degradation: degradation}
	rl := newIPLimiter(cfg, failingStore{}, breaker, &countingMetrics{})
	handler := rl.Middleware()(okHandler(&called))

	// First request: breaker trips on the failing store, request passes.
	ipRequest(t, handler, "203.0.113.9:1")
	clock.advance(time.Second)

	// Second request: breaker is open, request passes, and the limiter's
	// observation moves the degradation level to relaxed.
	called = false
	rec := ipRequest(t, handler, "203.0.113.9:2")
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("status=%d called=%v, want pass-through while breaker open", rec.Code, called)
	}
	if level := degradation.GetLevel(); level != LevelRelaxed {
		t.Fatalf("degradation level = %v, want relaxed after observing the open breaker", level)
	}
}

func TestIPRateLimiter_DegradationScalesLimit(t *testing.T) {
	degradation := NewDegradationManager(DegradationConfig{
		AutoAdjust: false, RelaxedMultiplier: 2, LimiterType: "ip",
	})
	degradation.SetLevel(LevelRelaxed)

	store := ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{})
	cfg := IPRateLimiterConfig{Limit: 1, Window: time.Minute, Enabled: true, Degradation: degradation}
	rl := newIPLimiter(cfg, store, nil, &countingMetrics{})
	handler := rl.Middleware()(okHandler(nil))

	// Base limit 1, relaxed 2x: the second request still fits.
	ipRequest(t, handler, "203.0.113.9:1")
	if rec := ipRequest(t, handler, "203.0.113.9:2"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want relaxed level to double the limit", rec.Code)
	}
	if rec := ipRequest(t, handler, "203.0.113.9:3"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 past the relaxed limit", rec.Code)
	}

	// Disabled level waves everything through.
	degradation.SetLevel(LevelDisabled)
	for i := 0; i < 5; i++ {
		if rec := ipRequest(t, handler, "203.0.113.9:9"); rec.Code != http.StatusOK {
			t.Fatalf("disabled level blocked request %d", i)
		}
	}
}
