package analyze

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a sliding-window call budget plus a minimum
// spacing between consecutive calls.
type RateLimiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	minSpacing time.Duration
	calls      []time.Time
	last       time.Time
	now        func() time.Time
}

// NewRateLimiter creates a limiter allowing limit calls per window with
// at least minSpacing between calls.
func NewRateLimiter(limit int, window, minSpacing time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:      limit,
		window:     window,
		minSpacing: minSpacing,
		now:        time.Now,
	}
}

// Reserve records an intended call and returns how long the caller must
// wait before making it. A zero duration means the call may proceed now.
func (r *RateLimiter) Reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	// Drop window-expired calls.
	cutoff := now.Add(-r.window)
	kept := r.calls[:0]
	for _, t := range r.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.calls = kept

	var wait time.Duration
	if len(r.calls) >= r.limit {
		wait = r.calls[0].Add(r.window).Sub(now)
	}
	if !r.last.IsZero() {
		if spacing := r.last.Add(r.minSpacing).Sub(now); spacing > wait {
			wait = spacing
		}
	}
	if wait < 0 {
		wait = 0
	}

	at := now.Add(wait)
	r.calls = append(r.calls, at)
	r.last = at
	return wait
}

// Wait blocks until the next call is permitted or the context ends.
func (r *RateLimiter) Wait(ctx context.Context) error {
	wait := r.Reserve()
	if wait == 0 {
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
