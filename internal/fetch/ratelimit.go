package fetch

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum delay between consecutive calls to the same
// provider. Courtesy throttling for public endpoints that ban aggressive
// clients (TEFAS and Yahoo both do).
type Limiter struct {
	mu       sync.Mutex
	minDelay time.Duration
	lastCall map[string]time.Time
}

// NewLimiter creates a limiter with the given minimum inter-call delay.
func NewLimiter(minDelay time.Duration) *Limiter {
	return &Limiter{
		minDelay: minDelay,
		lastCall: make(map[string]time.Time),
	}
}

// Wait blocks until the provider's minimum delay has elapsed since its last
// call, or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	l.mu.Lock()
	now := time.Now()
	wait := time.Duration(0)
	if last, ok := l.lastCall[provider]; ok {
		if elapsed := now.Sub(last); elapsed < l.minDelay {
			wait = l.minDelay - elapsed
		}
	}
	l.lastCall[provider] = now.Add(wait)
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
