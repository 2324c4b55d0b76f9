// Package ratelimit keeps one token bucket per client key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter hands out per-key limiters sharing the same rate and burst.
// Keys idle longer than ttl are evicted on the next sweep.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*entry
	r     rate.Limit
	burst int
	ttl   time.Duration
	sweep time.Time
	now   func() time.Time
}

func New(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		m:     make(map[string]*entry),
		r:     rate.Limit(perSecond),
		burst: burst,
		ttl:   10 * time.Minute,
		now:   time.Now,
	}
}

// Allow reports whether one request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.sweep) > l.ttl {
		for k, e := range l.m {
			if now.Sub(e.seen) > l.ttl {
				delete(l.m, k)
			}
		}
		l.sweep = now
	}

	e, ok := l.m[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.r, l.burst)}
		l.m[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
