package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// CircuitState is the breaker's current state.
type CircuitState int

const (
	// StateClosed is normal operation.
	StateClosed CircuitState = iota

	// StateOpen means the limiter backend kept failing. The breaker
	// fails OPEN: requests pass unthrottled, because dropping traffic
	// over a broken rate limiter is worse than briefly not limiting it.
	StateOpen

	// StateHalfOpen lets one probe operation through to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreakerConfig configures a CircuitBreaker. Zero fields default
// to 10 failures, 30 s recovery, SystemClock, and NoOpMetrics.
type CircuitBreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	Clock            Clock
	Metrics          RateLimitMetrics

	// LimiterType labels metrics and logs: "ip" or "user".
	LimiterType string
}

// CircuitBreaker shields request handling from a failing rate limiter
// backend. After FailureThreshold consecutive failures it opens and lets
// requests through unthrottled; after RecoveryTimeout it half-opens and
// probes.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu                  sync.RWMutex
	state               CircuitState
	consecutiveFailures int
	lastFailureTime     time.Time
	lastStateChange     time.Time
}

// NewCircuitBreaker builds a breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 10
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.Clock == nil {
		config.Clock = &SystemClock{}
	}
	if config.Metrics == nil {
		config.Metrics = &NoOpMetrics{}
	}

	cb := &CircuitBreaker{
		config:          config,
		state:           StateClosed,
		lastStateChange: config.Clock.Now(),
	}
	config.Metrics.RecordCircuitState(config.LimiterType, cb.state.String())
	return cb
}

// Execute runs operation under the breaker. In the open state the
// operation is skipped and nil returned (fail-open); half-open runs it as
// the recovery probe.
func (cb *CircuitBreaker) Execute(operation func() error) error {
	cb.attemptRecovery()

	cb.mu.RLock()
	state := cb.state
	cb.mu.RUnlock()

	switch state {
	case StateOpen:
		return nil
	case StateHalfOpen:
		return cb.probe(operation)
	default:
		err := operation()
		if err != nil {
			cb.RecordFailure()
			return err
		}
		cb.RecordSuccess()
		return nil
	}
}

// probe runs the half-open test operation and closes or reopens on its
// outcome.
func (cb *CircuitBreaker) probe(operation func() error) error {
	err := operation()

	cb.mu.Lock()
	oldState := cb.state
	if err != nil {
		cb.state = StateOpen
		cb.consecutiveFailures++
		cb.lastFailureTime = cb.config.Clock.Now()
	} else {
		cb.state = StateClosed
		cb.consecutiveFailures = 0
	}
	cb.lastStateChange = cb.config.Clock.Now()
	newState := cb.state
	failures := cb.consecutiveFailures
	cb.mu.Unlock()

	cb.config.Metrics.RecordCircuitState(cb.config.LimiterType, newState.String())
	cb.logTransition(oldState, newState, failures)
	return err
}

// Allow always reports true: even an open breaker admits the request,
// just without rate limiting. Kept as an explicit call site marker.
func (cb *CircuitBreaker) Allow() bool {
	cb.attemptRecovery()
	return true
}

// RecordSuccess resets the consecutive failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
}

// RecordFailure counts a failure and opens the circuit at the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	cb.consecutiveFailures++
	cb.lastFailureTime = cb.config.Clock.Now()

	opened := false
	oldState := cb.state
	if cb.consecutiveFailures >= cb.config.FailureThreshold && cb.state == StateClosed {
		cb.state = StateOpen
		cb.lastStateChange = cb.config.Clock.Now()
		opened = true
	}
	failures := cb.consecutiveFailures
	cb.mu.Unlock()

	if opened {
		cb.config.Metrics.RecordCircuitState(cb.config.LimiterType, StateOpen.String())
		cb.logTransition(oldState, StateOpen, failures)
	}
}

func (cb *CircuitBreaker) logTransition(from, to CircuitState, failures int) {
	slog.Warn("circuit breaker state changed",
		slog.String("limiter_type", cb.config.LimiterType),
		slog.String("previous_state", from.String()),
		slog.String("new_state", to.String()),
		slog.Int("consecutive_failures", failures),
		slog.Duration("recovery_timeout", cb.config.RecoveryTimeout))
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// IsOpen reports state == StateOpen.
func (cb *CircuitBreaker) IsOpen() bool { return cb.State() == StateOpen }

// IsClosed reports state == StateClosed.
func (cb *CircuitBreaker) IsClosed() bool { return cb.State() == StateClosed }

// IsHalfOpen reports state == StateHalfOpen.
func (cb *CircuitBreaker) IsHalfOpen() bool { return cb.State() == StateHalfOpen }

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.state = StateClosed
	cb.consecutiveFailures = 0
	cb.lastFailureTime = time.Time{}
	cb.lastStateChange = cb.config.Clock.Now()
	cb.mu.Unlock()

	cb.config.Metrics.RecordCircuitState(cb.config.LimiterType, StateClosed.String())
}

// attemptRecovery moves an open breaker to half-open once the recovery
// timeout has elapsed.
func (cb *CircuitBreaker) attemptRecovery() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return
	}
	now := cb.config.Clock.Now()
	if now.Sub(cb.lastStateChange) >= cb.config.RecoveryTimeout {
		cb.state = StateHalfOpen
		cb.lastStateChange = now
		cb.config.Metrics.RecordCircuitState(cb.config.LimiterType, StateHalfOpen.String())
	}
}

// CircuitBreakerStats is a snapshot for monitoring.
type CircuitBreakerStats struct {
	State               CircuitState
	ConsecutiveFailures int
	LastFailureTime     time.Time
	LastStateChange     time.Time
	TimeSinceLastChange time.Duration
}

// Stats returns the current snapshot.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return CircuitBreakerStats{
		State:               cb.state,
		ConsecutiveFailures: cb.consecutiveFailures,
		LastFailureTime:     cb.lastFailureTime,
		LastStateChange:     cb.lastStateChange,
		TimeSinceLastChange: cb.config.Clock.Now().Sub(cb.lastStateChange),
	}
}
