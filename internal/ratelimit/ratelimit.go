package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket. Tokens refill continuously at rate per second,
// capped at burst. The bucket starts full.
type Limiter struct {
	rate  float64
	burst float64

	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

// New returns a limiter allowing rate requests per second. A burst of 0 or
// less defaults to the rate (minimum 1).
func New(rate float64, burst int) *Limiter {
	if burst <= 0 {
		burst = int(rate)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rate:       rate,
		burst:      float64(burst),
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

// Acquire blocks until a token is available, then consumes it. It returns
// early with the context's error if ctx is done first.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(l.lastUpdate).Seconds()
		l.tokens = min(l.burst, l.tokens+elapsed*l.rate)
		l.lastUpdate = now

		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
