// Package storetest exercises a compliance suite against store.Store
// implementations so drivers stay behaviorally interchangeable.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/citewatch/citewatch/internal/model"
	"github.com/citewatch/citewatch/internal/store"
)

// Run exercises a minimal compliance suite against a store.Store
// implementation. makeStore should return a clean, isolated store.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()
	userID := "u-" + uuid.New().String()

	mon, err := s.Monitors().Create(ctx, &model.Monitor{
		UserID:         userID,
		Query:          "best crm software",
		Domain:         "example.com",
		Engines:        []string{"google"},
		ChangeTypes:    model.AllChangeTypes,
		AlertThreshold: model.ThresholdImmediate,
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if mon.ID == "" {
		t.Fatal("Create did not assign an id")
	}

	got, err := s.Monitors().Get(ctx, userID, mon.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Query != mon.Query || got.Domain != mon.Domain {
		t.Fatalf("Get returned %+v, want query/domain of %+v", got, mon)
	}

	if _, err := s.Monitors().Get(ctx, "someone-else", mon.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get with wrong user: got %v, want ErrNotFound", err)
	}

	active, err := s.Monitors().ListActiveByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListActiveByUser: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("ListActiveByUser: got %d monitors, want 1", len(active))
	}

	// Check-state update persists one baseline per engine plus the timestamp.
	pos := 2
	snap := &model.Snapshot{
		Query:            mon.Query,
		Domain:           mon.Domain,
		Engine:           "google",
		AIAnswer:         "answer text",
		CitedSources:     []model.CitedSource{{Title: "Example", Link: "https://example.com/a"}},
		CitationPosition: &pos,
		TotalSources:     1,
		CapturedAt:       time.Now(),
	}
	snap.Checksum = snap.ComputeChecksum()
	checkedAt := time.Now()
	if err := s.Monitors().UpdateCheckState(ctx, userID, mon.ID, snap, checkedAt); err != nil {
		t.Fatalf("UpdateCheckState: %v", err)
	}

	bingSnap := &model.Snapshot{
		Query:      mon.Query,
		Domain:     mon.Domain,
		Engine:     "bing",
		AIAnswer:   "a different answer",
		CapturedAt: time.Now(),
	}
	bingSnap.Checksum = bingSnap.ComputeChecksum()
	if err := s.Monitors().UpdateCheckState(ctx, userID, mon.ID, bingSnap, time.Now()); err != nil {
		t.Fatalf("UpdateCheckState (second engine): %v", err)
	}

	got, err = s.Monitors().Get(ctx, userID, mon.ID)
	if err != nil {
		t.Fatalf("Get after check: %v", err)
	}
	if got.LastSnapshots["google"] == nil || got.LastSnapshots["google"].Checksum != snap.Checksum {
		t.Fatalf("UpdateCheckState did not persist google snapshot: %+v", got.LastSnapshots)
	}
	if got.LastSnapshots["bing"] == nil || got.LastSnapshots["bing"].Checksum != bingSnap.Checksum {
		t.Fatalf("second engine's baseline missing or clobbered: %+v", got.LastSnapshots)
	}
	if got.LastChecked == nil {
		t.Fatal("UpdateCheckState did not persist last-checked time")
	}

	// Subscription update: deactivate and retarget change types.
	got.IsActive = false
	got.AlertThreshold = model.ThresholdDaily
	got.ChangeTypes = []model.ChangeType{model.ChangeCitationLost}
	if err := s.Monitors().Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	active, err = s.Monitors().ListActiveByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListActiveByUser after deactivate: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("deactivated monitor still listed active: %d", len(active))
	}

	// Change log is append-only and user-scoped.
	ch := &model.Change{
		MonitorID:   mon.ID,
		Engine:      "google",
		Type:        model.ChangeCitationGained,
		Severity:    model.SeverityHigh,
		OldValue:    "none",
		NewValue:    "2",
		Description: "gained",
		Impact:      "visibility up",
	}
	if err := s.Changes().Append(ctx, ch); err != nil {
		t.Fatalf("Append: %v", err)
	}
	byMon, err := s.Changes().ListByMonitor(ctx, mon.ID, 10)
	if err != nil {
		t.Fatalf("ListByMonitor: %v", err)
	}
	if len(byMon) != 1 || byMon[0].Type != model.ChangeCitationGained {
		t.Fatalf("ListByMonitor: got %+v", byMon)
	}
	recent, err := s.Changes().ListRecentByUser(ctx, userID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListRecentByUser: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("ListRecentByUser: got %d changes, want 1", len(recent))
	}

	// Hard delete removes the monitor.
	if err := s.Monitors().Delete(ctx, userID, mon.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Monitors().Get(ctx, userID, mon.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get after delete: got %v, want ErrNotFound", err)
	}
}
