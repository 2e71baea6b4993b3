// Package ratelimit implements fixed-window admission control in front of
// quota-limited provider APIs. It accepts or rejects; it never queues.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/citewatch/citewatch/internal/model"
)

// Limit describes one admission policy.
type Limit struct {
	Max    int
	Window time.Duration
}

// Result reports the bucket state after an Allow call, for 429 headers.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter tracks fixed-window request counts per identifier. Buckets are
// process-local and mutex-guarded; a multi-instance deployment needs a shared
// store behind the same interface.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// New returns an empty limiter.
func New() *Limiter {
	return &Limiter{buckets: make(map[string]*bucket), now: time.Now}
}

// Allow admits one request for identifier under lim. It returns a
// model.ErrRateLimited-wrapped error when the window's budget is spent;
// otherwise it increments the count, reseeding the bucket when the previous
// window has elapsed.
func (l *Limiter) Allow(identifier string, lim Limit) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[identifier]
	if !ok || now.After(b.resetAt) || now.Equal(b.resetAt) {
		b = &bucket{count: 0, resetAt: now.Add(lim.Window)}
		l.buckets[identifier] = b
	}

	if b.count >= lim.Max {
		return Result{Allowed: false, Remaining: 0, ResetAt: b.resetAt},
			fmt.Errorf("identifier %q over %d/%s: %w", identifier, lim.Max, lim.Window, model.ErrRateLimited)
	}

	b.count++
	return Result{Allowed: true, Remaining: lim.Max - b.count, ResetAt: b.resetAt}, nil
}

// Reset clears the bucket for identifier.
func (l *Limiter) Reset(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, identifier)
}
