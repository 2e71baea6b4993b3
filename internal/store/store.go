// Package store defines the persistence contract for monitors and the
// append-only change log. Implementations live under internal/store/<driver>/.
package store

import (
	"context"
	"time"

	"github.com/citewatch/citewatch/internal/model"
)

// Store exposes the persistence operations required by services.
type Store interface {
	Monitors() Monitors
	Changes() Changes
}

// Monitors is keyed by monitor id; reads are always scoped to the owning user.
type Monitors interface {
	Create(ctx context.Context, m *model.Monitor) (*model.Monitor, error)
	Get(ctx context.Context, userID, monitorID string) (*model.Monitor, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*model.Monitor, error)
	// ListAllActive feeds the background sweep across every owner.
	ListAllActive(ctx context.Context) ([]*model.Monitor, error)
	// Update applies the mutable subscription fields (active flag, threshold,
	// tracked change types).
	Update(ctx context.Context, m *model.Monitor) error
	// UpdateCheckState overwrites the stored snapshot for snap's engine and
	// the last-checked time after a successful check. Other engines' baselines
	// are untouched. Last-writer-wins per engine: the deduplicator guarantees
	// at most one check per monitor/engine in flight.
	UpdateCheckState(ctx context.Context, userID, monitorID string, snap *model.Snapshot, checkedAt time.Time) error
	Delete(ctx context.Context, userID, monitorID string) error
}

// Changes is the append-only change log.
type Changes interface {
	Append(ctx context.Context, c *model.Change) error
	ListByMonitor(ctx context.Context, monitorID string, limit int) ([]*model.Change, error)
	ListRecentByUser(ctx context.Context, userID string, since time.Time) ([]*model.Change, error)
}
