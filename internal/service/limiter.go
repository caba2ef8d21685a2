package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether a caller may start another arbitration.
type Limiter interface {
	Allow(caller string) bool
}

// Unlimited admits every request.
type Unlimited struct{}

// Allow implements Limiter.
func (Unlimited) Allow(string) bool { return true }

// PerCallerLimiter keeps an independent token bucket per caller.
type PerCallerLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	callers map[string]*caller
}

type caller struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewPerCallerLimiter allows each caller perMinute requests per minute with
// bursts of up to burst requests.
func NewPerCallerLimiter(perMinute, burst int) *PerCallerLimiter {
	if burst < 1 {
		burst = 1
	}
	return &PerCallerLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		now:     time.Now,
		callers: make(map[string]*caller),
	}
}

// Allow implements Limiter.
func (l *PerCallerLimiter) Allow(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.callers[name]
	if !ok {
		c = &caller{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.callers[name] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Prune forgets callers not seen for idle and returns how many were removed.
func (l *PerCallerLimiter) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	removed := 0
	for name, c := range l.callers {
		if c.lastSeen.Before(cutoff) {
			delete(l.callers, name)
			removed++
		}
	}
	return removed
}

// Callers returns the number of tracked callers.
func (l *PerCallerLimiter) Callers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.callers)
}
