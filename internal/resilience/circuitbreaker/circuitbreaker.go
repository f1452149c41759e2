// Package circuitbreaker wraps github.com/sony/gobreaker for the
// service's outbound calls: feed/HN/Reddit listings, article fetches,
// LLM and embedding APIs, SMTP, and the database.
package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Config tunes one breaker.
type Config struct {
	// Name labels logs and metrics.
	Name string

	// MaxRequests bounds probes in the half-open state.
	MaxRequests uint32

	// Interval is the closed-state window over which counts are
	// cleared.
	Interval time.Duration

	// Timeout is how long the breaker stays open before half-opening.
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the breaker once
	// MinRequests have been seen.
	FailureThreshold float64

	// MinRequests is the sample size required before the ratio counts.
	MinRequests uint32
}

// DefaultConfig is the baseline preset; the named presets below adjust
// it per call target.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// ClaudeAPIConfig covers Anthropic API calls (relevance judging,
// briefing composition).
func ClaudeAPIConfig() Config {
	return DefaultConfig("claude-api")
}

// OpenAIAPIConfig covers OpenAI API calls (embeddings, alternate LLM).
func OpenAIAPIConfig() Config {
	return DefaultConfig("openai-api")
}

// FeedFetchConfig covers listing fetches (syndication feeds, HN, Reddit).
// More tolerant than the API presets: third-party feeds flake routinely
// and the scheduler retries next tick anyway.
func FeedFetchConfig() Config {
	return Config{
		Name:             "feed-fetch",
		MaxRequests:      5,
		Interval:         60 * time.Second,
		Timeout:          120 * time.Second,
		FailureThreshold: 0.7,
		MinRequests:      10,
	}
}

// ArticleFetchConfig covers article body downloads for the extractor.
// Long open timeout: an origin that keeps failing extraction stays
// benched for an hour rather than being re-probed every batch.
func ArticleFetchConfig() Config {
	return Config{
		Name:             "article-fetch",
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          time.Hour,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// CircuitBreaker wraps one gobreaker instance.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New builds a breaker that trips on cfg's failure ratio and logs state
// changes.
func New(cfg Config) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
	return &CircuitBreaker{breaker: gobreaker.NewCircuitBreaker(settings), name: cfg.Name}
}

// Execute runs fn through the breaker; an open breaker returns
// gobreaker.ErrOpenState without calling fn.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name returns the breaker's name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen reports whether the breaker is open.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}
