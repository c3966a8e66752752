package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunPoolBoundsConcurrencyAndCollectsAll(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}
	var active, peak atomic.Int32
	work := func(ctx context.Context, n int) (int, error) {
		cur := active.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		return n * 2, nil
	}
	sum := 0
	collected := 0
	err := runPool(context.Background(), 4, items, work, func(_ int, v int, err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		sum += v
		collected++
	})
	if err != nil {
		t.Fatalf("runPool: %v", err)
	}
	if collected != len(items) {
		t.Fatalf("collected %d, want %d", collected, len(items))
	}
	if sum != 2*(49*50/2) {
		t.Fatalf("unexpected sum %d", sum)
	}
	if peak.Load() > 4 {
		t.Fatalf("peak concurrency %d exceeds pool size", peak.Load())
	}
}

func TestRunPoolRecoversPanics(t *testing.T) {
	var errs int
	err := runPool(context.Background(), 2, []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			panic("boom")
		}
		return n, nil
	}, func(_ int, _ int, err error) {
		if err != nil {
			errs++
		}
	})
	if err != nil {
		t.Fatalf("runPool: %v", err)
	}
	if errs != 1 {
		t.Fatalf("expected one panic converted to error, got %d", errs)
	}
}

func TestRunPoolReturnsPromptlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	defer close(release)

	done := make(chan error, 1)
	go func() {
		done <- runPool(ctx, 2, []int{1, 2, 3, 4, 5, 6}, func(ctx context.Context, n int) (int, error) {
			started <- struct{}{}
			<-release
			return n, nil
		}, func(int, int, error) {})
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runPool did not return after cancellation")
	}
}

func TestRunPoolEmptyItems(t *testing.T) {
	called := false
	err := runPool(context.Background(), 4, nil, func(context.Context, int) (int, error) {
		called = true
		return 0, nil
	}, func(int, int, error) {})
	if err != nil || called {
		t.Fatalf("expected no work for empty input, err=%v called=%v", err, called)
	}
}
