// Package ratelimit provides per-key token buckets held in a bounded, expiring LRU.
package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	defaultMaxKeys = 10000
	defaultIdleTTL = 15 * time.Minute
)

// KeyedLimiter hands out one token bucket per key. Buckets idle for longer than the TTL are
// evicted, which resets the key to a full burst.
type KeyedLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets *expirable.LRU[string, *rate.Limiter]
}

// NewKeyedLimiter returns a limiter allowing perMinute events per key with the given burst.
// perMinute <= 0 disables limiting.
func NewKeyedLimiter(perMinute float64, burst int) *KeyedLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}
	if burst <= 0 {
		burst = 1
	}
	return &KeyedLimiter{
		limit:   limit,
		burst:   burst,
		buckets: expirable.NewLRU[string, *rate.Limiter](defaultMaxKeys, nil, defaultIdleTTL),
	}
}

// Allow reports whether one more event for key may happen now.
func (l *KeyedLimiter) Allow(key string) bool {
	return l.AllowAt(key, time.Now())
}

// AllowAt is Allow with an explicit clock.
func (l *KeyedLimiter) AllowAt(key string, now time.Time) bool {
	if l.limit == rate.Inf {
		return true
	}
	l.mu.Lock()
	lim, ok := l.buckets.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	// Re-adding refreshes the idle TTL.
	l.buckets.Add(key, lim)
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *KeyedLimiter) Len() int {
	return l.buckets.Len()
}
