// Package ratelimit provides client-side request pacing for the ingesters
// that talk to third-party listing APIs.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter implements the token bucket algorithm for rate limiting.
// It keeps ingesters from hammering external listing APIs when a run
// resolves many items in quick succession.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter with the specified sustained rate and burst
// capacity.
//
// Parameters:
//   - requestsPerSecond: Maximum sustained request rate (e.g., 2.0 for 2 requests per second)
//   - burst: Maximum number of requests that can be made in a burst (e.g., 5)
//
// The token bucket allows up to burst requests immediately, then refills
// tokens at requestsPerSecond.
func New(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a token is available or the context is canceled.
// Call it immediately before issuing a rate-limited request.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
