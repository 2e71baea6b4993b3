package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var fastPolicy = Policy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func TestSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("got err=%v calls=%d, want nil/1", err, calls)
	}
}

func TestRetriesThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
}

func TestExhaustionReturnsLastError(t *testing.T) {
	last := errors.New("final failure")
	calls := 0
	err := Do(context.Background(), fastPolicy, func(ctx context.Context) error {
		calls++
		if calls == fastPolicy.MaxRetries+1 {
			return last
		}
		return errors.New("earlier failure")
	})
	if !errors.Is(err, last) {
		t.Fatalf("got %v, want the last error", err)
	}
	if calls != fastPolicy.MaxRetries+1 {
		t.Fatalf("calls=%d, want %d", calls, fastPolicy.MaxRetries+1)
	}
}

func TestContextCancelStopsSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{MaxRetries: 10, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second},
		func(ctx context.Context) error {
			calls++
			cancel()
			return errors.New("always fails")
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want 1: cancellation must stop further attempts", calls)
	}
}

func TestBackoffIsCappedAtMaxDelay(t *testing.T) {
	p := Policy{MaxRetries: 8, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
	for attempt := 0; attempt < 20; attempt++ {
		if d := backoff(p, attempt); d > p.MaxDelay {
			t.Fatalf("attempt %d: backoff %v exceeds cap %v", attempt, d, p.MaxDelay)
		}
	}
}
