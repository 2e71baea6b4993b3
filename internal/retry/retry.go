// Package retry wraps fallible operations with exponential backoff.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy controls the backoff schedule. Delay before attempt n (0-based
// retry count) is min(BaseDelay*2^n, MaxDelay), with up to 25% random jitter
// added so concurrently failing callers do not retry in lockstep.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultPolicy matches the scheduler's provider-call settings.
var DefaultPolicy = Policy{MaxRetries: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}

// Do invokes op, retrying on error up to p.MaxRetries additional times.
// The context deadline is honored across the whole schedule, not just per
// attempt: a cancellation during backoff returns ctx.Err() immediately.
// On exhaustion the last error is returned.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(p, attempt-1)):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = op(ctx); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func backoff(p Policy, attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	// Full delay plus up to 25% jitter, capped at MaxDelay.
	j := d + time.Duration(rand.Int63n(int64(d)/4+1))
	if j > p.MaxDelay {
		j = p.MaxDelay
	}
	return j
}
