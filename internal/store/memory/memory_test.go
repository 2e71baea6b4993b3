package memory

import (
	"context"
	"testing"

	"github.com/citewatch/citewatch/internal/model"
	"github.com/citewatch/citewatch/internal/store"
	"github.com/citewatch/citewatch/internal/store/storetest"
)

func TestCompliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestClonesIsolateCallerMutation(t *testing.T) {
	s := New()
	ctx := context.Background()

	mon, err := s.Monitors().Create(ctx, &model.Monitor{
		UserID:      "u1",
		Query:       "best crm",
		Domain:      "example.com",
		Engines:     []string{"google"},
		ChangeTypes: model.AllChangeTypes,
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Mutating the returned copy must not leak into the store.
	mon.Engines[0] = "mutated"
	mon.Query = "mutated"

	got, err := s.Monitors().Get(ctx, "u1", mon.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Engines[0] != "google" || got.Query != "best crm" {
		t.Fatalf("store state mutated through returned copy: %+v", got)
	}
}
