// Package memory provides an in-memory store.Store used by tests and
// single-process development setups.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citewatch/citewatch/internal/model"
	"github.com/citewatch/citewatch/internal/store"
)

// New returns an empty in-memory store.
func New() store.Store {
	s := &memStore{
		monitors: make(map[string]*model.Monitor),
	}
	s.mon = &monitors{s: s}
	s.chg = &changes{s: s}
	return s
}

type memStore struct {
	mu       sync.RWMutex
	monitors map[string]*model.Monitor
	log      []*model.Change

	mon *monitors
	chg *changes
}

func (s *memStore) Monitors() store.Monitors { return s.mon }
func (s *memStore) Changes() store.Changes   { return s.chg }

type monitors struct{ s *memStore }

func (m *monitors) Create(ctx context.Context, in *model.Monitor) (*model.Monitor, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	out := cloneMonitor(in)
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.CreationTime.IsZero() {
		out.CreationTime = time.Now()
	}
	m.s.monitors[out.ID] = out
	return cloneMonitor(out), nil
}

func (m *monitors) Get(ctx context.Context, userID, monitorID string) (*model.Monitor, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	mon, ok := m.s.monitors[monitorID]
	if !ok || mon.UserID != userID {
		return nil, model.ErrNotFound
	}
	return cloneMonitor(mon), nil
}

func (m *monitors) ListActiveByUser(ctx context.Context, userID string) ([]*model.Monitor, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var out []*model.Monitor
	for _, mon := range m.s.monitors {
		if mon.UserID == userID && mon.IsActive {
			out = append(out, cloneMonitor(mon))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreationTime.Before(out[j].CreationTime) })
	return out, nil
}

func (m *monitors) ListAllActive(ctx context.Context) ([]*model.Monitor, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var out []*model.Monitor
	for _, mon := range m.s.monitors {
		if mon.IsActive {
			out = append(out, cloneMonitor(mon))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreationTime.Before(out[j].CreationTime) })
	return out, nil
}

func (m *monitors) Update(ctx context.Context, in *model.Monitor) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	mon, ok := m.s.monitors[in.ID]
	if !ok || mon.UserID != in.UserID {
		return model.ErrNotFound
	}
	mon.IsActive = in.IsActive
	mon.AlertThreshold = in.AlertThreshold
	mon.ChangeTypes = append([]model.ChangeType(nil), in.ChangeTypes...)
	return nil
}

func (m *monitors) UpdateCheckState(ctx context.Context, userID, monitorID string, snap *model.Snapshot, checkedAt time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	mon, ok := m.s.monitors[monitorID]
	if !ok || mon.UserID != userID {
		return model.ErrNotFound
	}
	if mon.LastSnapshots == nil {
		mon.LastSnapshots = make(map[string]*model.Snapshot)
	}
	mon.LastSnapshots[snap.Engine] = cloneSnapshot(snap)
	t := checkedAt
	mon.LastChecked = &t
	return nil
}

func (m *monitors) Delete(ctx context.Context, userID, monitorID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	mon, ok := m.s.monitors[monitorID]
	if !ok || mon.UserID != userID {
		return model.ErrNotFound
	}
	delete(m.s.monitors, monitorID)
	return nil
}

type changes struct{ s *memStore }

func (c *changes) Append(ctx context.Context, in *model.Change) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	cp := *in
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.DetectedAt.IsZero() {
		cp.DetectedAt = time.Now()
	}
	c.s.log = append(c.s.log, &cp)
	return nil
}

func (c *changes) ListByMonitor(ctx context.Context, monitorID string, limit int) ([]*model.Change, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var out []*model.Change
	for i := len(c.s.log) - 1; i >= 0; i-- {
		if c.s.log[i].MonitorID == monitorID {
			cp := *c.s.log[i]
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (c *changes) ListRecentByUser(ctx context.Context, userID string, since time.Time) ([]*model.Change, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	owned := make(map[string]bool)
	for id, mon := range c.s.monitors {
		if mon.UserID == userID {
			owned[id] = true
		}
	}

	var out []*model.Change
	for i := len(c.s.log) - 1; i >= 0; i-- {
		ch := c.s.log[i]
		if owned[ch.MonitorID] && !ch.DetectedAt.Before(since) {
			cp := *ch
			out = append(out, &cp)
		}
	}
	return out, nil
}

func cloneMonitor(m *model.Monitor) *model.Monitor {
	cp := *m
	cp.Engines = append([]string(nil), m.Engines...)
	cp.ChangeTypes = append([]model.ChangeType(nil), m.ChangeTypes...)
	if m.LastChecked != nil {
		t := *m.LastChecked
		cp.LastChecked = &t
	}
	if m.LastSnapshots != nil {
		cp.LastSnapshots = make(map[string]*model.Snapshot, len(m.LastSnapshots))
		for engine, s := range m.LastSnapshots {
			cp.LastSnapshots[engine] = cloneSnapshot(s)
		}
	}
	return &cp
}

func cloneSnapshot(s *model.Snapshot) *model.Snapshot {
	if s == nil {
		return nil
	}
	cp := *s
	cp.CitedSources = append([]model.CitedSource(nil), s.CitedSources...)
	cp.OrganicPositions = append([]int(nil), s.OrganicPositions...)
	if s.CitationPosition != nil {
		p := *s.CitationPosition
		cp.CitationPosition = &p
	}
	if s.FeaturedSnippet != nil {
		fs := *s.FeaturedSnippet
		cp.FeaturedSnippet = &fs
	}
	return &cp
}
