package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter throttles calls per named resource (terms, documents, edges).
// A zero rate disables throttling.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter applying callsPerSecond to every resource
func NewLimiter(callsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(callsPerSecond)
	if callsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until resource may be called again
func (l *Limiter) Wait(ctx context.Context, resource string) error {
	if l == nil {
		return ctx.Err()
	}
	return l.getLimiter(resource).Wait(ctx)
}

// Allow reports whether a call is allowed now without waiting
func (l *Limiter) Allow(resource string) bool {
	if l == nil {
		return true
	}
	return l.getLimiter(resource).Allow()
}

func (l *Limiter) getLimiter(resource string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[resource]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[resource]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[resource] = limiter

	return limiter
}

// SetRate overrides the limit for one resource
func (l *Limiter) SetRate(resource string, callsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[resource] = rate.NewLimiter(rate.Limit(callsPerSecond), burst)
}
