// Package ratelimit spaces outbound calls to the routing engine.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
)

// DefaultInterval keeps us under the public OSRM demo server limit.
const DefaultInterval = 1100 * time.Millisecond

// Limiter grants at most one acquisition per interval, process-wide.
// Waiters are released in the order they reserved.
type Limiter struct {
	interval time.Duration
	clock    clock.Clock
	limiter  *rate.Limiter

	mu   sync.Mutex
	last time.Time
}

// New returns a Limiter enforcing interval between grants. A nil clock means
// wall-clock time; an interval <= 0 disables the gate.
func New(interval time.Duration, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	l := &Limiter{interval: interval, clock: clk}
	if interval > 0 {
		l.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return l
}

// Interval returns the configured minimum spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until the caller may issue a request or ctx is done. On
// cancellation the reservation is handed back and ctx.Err() is returned.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.limiter == nil {
		return nil
	}

	now := l.clock.Now()
	r := l.limiter.ReserveN(now, 1)
	if err := l.sleep(ctx, r.DelayFrom(now)); err != nil {
		r.CancelAt(l.clock.Now())
		return err
	}

	// rate.Every rounds the interval and a timer may fire late, so the
	// floor is also held against recorded grant times.
	for {
		l.mu.Lock()
		now = l.clock.Now()
		floor := l.last.Add(l.interval).Sub(now)
		if l.last.IsZero() || floor <= 0 {
			l.last = now
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()
		if err := l.sleep(ctx, floor); err != nil {
			return err
		}
	}
}

func (l *Limiter) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := l.clock.Timer(d)
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
}
