package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a per-source call budget: at most limit calls per window.
// One instance per source; the counters are never shared across sources.
// Acquire blocks (up to one window) when the budget is spent.
type Limiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	calls       int
	windowStart time.Time

	// waited accumulates total throttle sleep, for reporting.
	waited time.Duration
}

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{limit: limit, window: window, windowStart: time.Now()}
}

// Acquire consumes one call from the current window. When the window's budget
// is exhausted it sleeps until the window elapses, then resets the counters.
// Safe to call before every request, including the first.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.windowStart)
	if elapsed >= l.window {
		l.windowStart = now
		l.calls = 0
		elapsed = 0
	}

	if l.calls >= l.limit {
		wait := l.window - elapsed
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		l.waited += wait
		l.windowStart = time.Now()
		l.calls = 0
	}

	l.calls++
	return nil
}

// Waited reports the total time Acquire has spent sleeping.
func (l *Limiter) Waited() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waited
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
