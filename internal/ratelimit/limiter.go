package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one request against a fixed window counter.
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int) Decision
}

func decide(count, limit int, ttl time.Duration) Decision {
	d := Decision{Allowed: count <= limit, Count: count, Limit: limit}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps counters in process. It is used when no Redis is
// configured and as the fallback when Redis is unreachable.
type MemoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	windows map[string]window
	now     func() time.Time
}

func NewMemory(w time.Duration) *MemoryLimiter {
	if w <= 0 {
		w = time.Minute
	}
	return &MemoryLimiter{
		window:  w,
		windows: make(map[string]window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int) Decision {
	if limit <= 0 {
		limit = 1
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		l.sweep(now)
		w = window{resetAt: now.Add(l.window)}
	}
	w.count++
	l.windows[key] = w

	return decide(w.count, limit, w.resetAt.Sub(now))
}

// sweep drops expired windows; callers hold l.mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
