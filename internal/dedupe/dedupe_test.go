package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestConcurrentCallsShareOneExecution(t *testing.T) {
	d := New()
	var executions int32

	op := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&executions, 1)
		time.Sleep(50 * time.Millisecond)
		return "result", nil
	}

	const callers = 8
	results := make([]interface{}, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := d.Do(context.Background(), "x", op)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	if n := atomic.LoadInt32(&executions); n != 1 {
		t.Fatalf("operation executed %d times, want 1", n)
	}
	for i, v := range results {
		if v != "result" {
			t.Fatalf("caller %d got %v, want shared result", i, v)
		}
	}
}

func TestKeyIsReleasedAfterSettle(t *testing.T) {
	d := New()
	var executions int32

	op := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&executions, 1)
		return nil, context.DeadlineExceeded
	}

	if _, err := d.Do(context.Background(), "x", op); err == nil {
		t.Fatal("expected first call to fail")
	}
	if _, err := d.Do(context.Background(), "x", op); err == nil {
		t.Fatal("expected second call to fail")
	}
	if n := atomic.LoadInt32(&executions); n != 2 {
		t.Fatalf("sequential calls executed %d times, want 2 (entry must drop on settle)", n)
	}
}

func TestDistinctKeysRunIndependently(t *testing.T) {
	d := New()
	var executions int32

	op := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&executions, 1)
		return nil, nil
	}

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, _ = d.Do(context.Background(), key, op)
		}(key)
	}
	wg.Wait()

	if n := atomic.LoadInt32(&executions); n != 2 {
		t.Fatalf("distinct keys executed %d times, want 2", n)
	}
}
