package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a token bucket per key. The number of keys is bounded: buckets
// that refilled and sat idle are pruned by Run, and when the table is full a
// new key triggers an inline sweep and is denied if nothing could be freed.
type Limiter struct {
	mu         sync.Mutex
	m          map[string]*bucket
	clock      clockwork.Clock
	capacity   float64
	refillRate float64 // tokens per second
	maxKeys    int
	idle       time.Duration
}

type Option func(*Limiter)

// WithMaxKeys caps the number of tracked keys.
func WithMaxKeys(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.maxKeys = n
		}
	}
}

// WithIdle sets how long a full bucket is kept before it may be pruned.
func WithIdle(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.idle = d
		}
	}
}

func New(capacity, refillPerSec float64, clock clockwork.Clock, opts ...Option) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	l := &Limiter{
		m:          make(map[string]*bucket),
		clock:      clock,
		capacity:   capacity,
		refillRate: refillPerSec,
		maxKeys:    10000,
		idle:       10 * time.Minute,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		if len(l.m) >= l.maxKeys && l.pruneLocked(now, l.idle) == 0 {
			return false
		}
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Prune drops buckets that have been full for at least idle.
func (l *Limiter) Prune(idle time.Duration) int {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pruneLocked(now, idle)
}

func (l *Limiter) pruneLocked(now time.Time, idle time.Duration) int {
	n := 0
	for k, b := range l.m {
		refilled := b.tokens + now.Sub(b.last).Seconds()*l.refillRate
		if refilled >= l.capacity && now.Sub(b.last) >= idle {
			delete(l.m, k)
			n++
		}
	}
	return n
}

// Run prunes idle buckets every interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = time.Minute
	}
	ticker := l.clock.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			l.Prune(l.idle)
		}
	}
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
