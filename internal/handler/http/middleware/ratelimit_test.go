package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func tokenLimiterHandler(rl *RateLimiter) http.Handler {
	return rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(t *testing.T, handler http.Handler, remoteAddr string) int {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/token", nil)
	req.RemoteAddr = remoteAddr
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, &RemoteAddrExtractor{})
	handler := tokenLimiterHandler(rl)

	for i := 0; i < 3; i++ {
		if code := doRequest(t, handler, "10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, code)
		}
	}
}

func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, &RemoteAddrExtractor{})
	handler := tokenLimiterHandler(rl)

	doRequest(t, handler, "10.0.0.1:1234")
	doRequest(t, handler, "10.0.0.1:1234")
	if code := doRequest(t, handler, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", code)
	}
}

func TestRateLimiter_LimitsPerIP(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, &RemoteAddrExtractor{})
	handler := tokenLimiterHandler(rl)

	doRequest(t, handler, "10.0.0.1:1234")
	if code := doRequest(t, handler, "10.0.0.2:1234"); code != http.StatusOK {
		t.Fatalf("other IP status = %d, want 200 (limits are per IP)", code)
	}
	if code := doRequest(t, handler, "10.0.0.1:5678"); code != http.StatusTooManyRequests {
		t.Fatalf("same IP different port status = %d, want 429 (port is not part of the key)", code)
	}
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond, &RemoteAddrExtractor{})
	handler := tokenLimiterHandler(rl)

	doRequest(t, handler, "10.0.0.1:1234")
	if code := doRequest(t, handler, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 inside window", code)
	}

	time.Sleep(60 * time.Millisecond)
	if code := doRequest(t, handler, "10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("status = %d, want 200 after window elapsed", code)
	}
}

func TestRateLimiter_InvalidRemoteAddrRejected(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute, &RemoteAddrExtractor{})
	handler := tokenLimiterHandler(rl)

	if code := doRequest(t, handler, "not-an-addr"); code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 for unextractable client address", code)
	}
}

func TestRateLimiter_CleanupExpiredDropsIdleIPs(t *testing.T) {
	rl := NewRateLimiter(5, 10*time.Millisecond, &RemoteAddrExtractor{})
	handler := tokenLimiterHandler(rl)

	doRequest(t, handler, "10.0.0.1:1234")
	doRequest(t, handler, "10.0.0.2:1234")
	time.Sleep(20 * time.Millisecond)
	rl.CleanupExpired()

	rl.mu.Lock()
	remaining := len(rl.requests)
	rl.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("tracked IPs after cleanup = %d, want 0", remaining)
	}
}

func TestRateLimiter_ConcurrentRequestsRespectLimit(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute, &RemoteAddrExtractor{})
	handler := tokenLimiterHandler(rl)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if doRequest(t, handler, "10.0.0.1:1234") == http.StatusOK {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Fatalf("allowed = %d, want exactly the limit of 10", allowed)
	}
}
