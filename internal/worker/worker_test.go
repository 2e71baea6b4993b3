package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/citewatch/citewatch/internal/alert"
	"github.com/citewatch/citewatch/internal/cache"
	"github.com/citewatch/citewatch/internal/dedupe"
	"github.com/citewatch/citewatch/internal/model"
	"github.com/citewatch/citewatch/internal/ratelimit"
	"github.com/citewatch/citewatch/internal/retry"
	"github.com/citewatch/citewatch/internal/scheduler"
	"github.com/citewatch/citewatch/internal/store/memory"
)

type countingFetcher struct{ calls int32 }

func (f *countingFetcher) Fetch(ctx context.Context, query, domain, engine string) (*model.Snapshot, error) {
	atomic.AddInt32(&f.calls, 1)
	s := &model.Snapshot{Query: query, Domain: domain, Engine: engine, CapturedAt: time.Now()}
	s.Checksum = s.ComputeChecksum()
	return s, nil
}

func TestRunSweepsActiveMonitorsUntilCanceled(t *testing.T) {
	st := memory.New()
	if _, err := st.Monitors().Create(context.Background(), &model.Monitor{
		UserID:      "u1",
		Query:       "best crm",
		Domain:      "example.com",
		Engines:     []string{"google"},
		ChangeTypes: model.AllChangeTypes,
		IsActive:    true,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	f := &countingFetcher{}
	disp := alert.NewDispatcher(st.Changes(), nil, nil, nil, zerolog.Nop())
	sched := scheduler.New(st, f, disp, ratelimit.New(), cache.New(4), dedupe.New(), nil, zerolog.Nop(), scheduler.Config{
		RateLimit: ratelimit.Limit{Max: 100, Window: time.Minute},
		CacheTTL:  time.Nanosecond,
		Retry:     retry.Policy{MaxRetries: 0, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})

	w := New(sched, Config{Interval: 10 * time.Millisecond, SweepTimeout: time.Second}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&f.calls) < 2 {
		select {
		case <-deadline:
			t.Fatal("worker never completed two sweeps")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}
