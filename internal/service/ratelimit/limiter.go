package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter is how long an untouched key is kept before it may be purged.
const idleAfter = time.Hour

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per key, used to cap section refreshes
// per user. Buckets idle for an hour are dropped once the map grows.
type Limiter struct {
	mu        sync.Mutex
	m         map[string]*entry
	now       func() time.Time
	nextPurge int
}

func New() *Limiter { return NewWithClock(time.Now) }

// NewWithClock builds a limiter driven by now.
func NewWithClock(now func() time.Time) *Limiter {
	return &Limiter{m: make(map[string]*entry), now: now, nextPurge: 1024}
}

// Allow consumes one token for key from a bucket of the given capacity that
// refills at refillPerSec. The bucket is created full on first use.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.m[key]
	if !ok {
		if len(l.m) >= l.nextPurge {
			l.purge(now)
		}
		e = &entry{lim: rate.NewLimiter(rate.Limit(refillPerSec), max(int(capacity), 1))}
		l.m[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// Len reports how many keys are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *Limiter) purge(now time.Time) {
	for k, e := range l.m {
		if now.Sub(e.seen) > idleAfter {
			delete(l.m, k)
		}
	}
	l.nextPurge = max(2*len(l.m), 1024)
}
