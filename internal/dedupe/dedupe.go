// Package dedupe coalesces concurrent calls that share an operation key into
// a single in-flight execution. The scheduler keys calls by monitorID:engine
// so at most one check per monitor/engine pair runs at a time.
package dedupe

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Deduper shares the result of one in-flight operation among all concurrent
// callers using the same key. The in-flight entry is dropped once the
// operation settles, success or failure, so later calls execute fresh.
type Deduper struct {
	group singleflight.Group
}

// New returns an empty Deduper.
func New() *Deduper { return &Deduper{} }

// Do runs op under key, or joins an already-running op with the same key.
// All joined callers receive the same value and error.
func (d *Deduper) Do(ctx context.Context, key string, op func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	v, err, _ := d.group.Do(key, func() (interface{}, error) {
		return op(ctx)
	})
	return v, err
}
