package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// Shared fixtures for the IP/user limiter and degradation tests.

// stepClock is a settable ratelimit.Clock.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingStore errors on every operation, for fail-open and breaker
// paths.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) AddRequest(context.Context, string, time.Time) error { return errStoreDown }
func (failingStore) GetRequests(context.Context, string, time.Time) ([]time.Time, error) {
	return nil, errStoreDown
}
func (failingStore) GetRequestCount(context.Context, string, time.Time) (int, error) {
	return 0, errStoreDown
}
func (failingStore) Cleanup(context.Context, time.Time) error      { return errStoreDown }
func (failingStore) KeyCount(context.Context) (int, error)         { return 0, errStoreDown }
func (failingStore) MemoryUsage(context.Context) (int64, error)    { return 0, errStoreDown }

// countingMetrics tallies the RateLimitMetrics calls the limiters make.
type countingMetrics struct {
	mu      sync.Mutex
	allowed int
	denied  int
	checks  int
	levels  []int
}

func (m *countingMetrics) RecordRequest(string, string) {}
func (m *countingMetrics) RecordDenied(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied++
}
func (m *countingMetrics) RecordAllowed(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowed++
}
func (m *countingMetrics) RecordCheckDuration(string, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
}
func (m *countingMetrics) SetActiveKeys(string, int)      {}
func (m *countingMetrics) RecordCircuitState(string, string) {}
func (m *countingMetrics) RecordDegradationLevel(_ string, level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels = append(m.levels, level)
}
func (m *countingMetrics) RecordEviction(string, int) {}

func (m *countingMetrics) counts() (allowed, denied int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowed, m.denied
}

// okHandler answers 200 and reports whether it ran.
func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}
