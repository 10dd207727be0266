package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter spaces outbound API calls so that successive calls are separated
// by at least 1/rate seconds. It is safe for concurrent use; waiting callers
// are served one at a time.
type Limiter struct {
	rl *rate.Limiter
}

// New creates a Limiter allowing callsPerSecond outbound calls. Rates at or
// below zero fall back to one call per second.
func New(callsPerSecond float64) *Limiter {
	if callsPerSecond <= 0 {
		callsPerSecond = 1
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(callsPerSecond), 1)}
}

// Wait blocks until the next call is allowed or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.rl.Wait(ctx)
}

// SetRate changes the spacing. Takes effect for waits issued afterwards.
func (l *Limiter) SetRate(callsPerSecond float64) {
	if callsPerSecond <= 0 {
		return
	}
	l.rl.SetLimit(rate.Limit(callsPerSecond))
}
