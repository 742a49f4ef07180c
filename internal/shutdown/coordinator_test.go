package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRunClosesInReverseOrder(t *testing.T) {
	coord := NewCoordinator(DefaultConfig(), nil)

	var mu sync.Mutex
	var closed []string
	record := func(name string) CloseFunc {
		return func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			closed = append(closed, name)
			return nil
		}
	}

	coord.Register("cache", record("cache"))
	coord.Register("documents", record("documents"))

	if err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"documents", "cache"}
	if len(closed) != len(want) {
		t.Fatalf("closed %d entries, want %d", len(closed), len(want))
	}
	for i := range want {
		if closed[i] != want[i] {
			t.Errorf("close order[%d] = %q, want %q", i, closed[i], want[i])
		}
	}
}

func TestRunIsOneShot(t *testing.T) {
	coord := NewCoordinator(DefaultConfig(), nil)

	var calls int
	coord.Register("cache", func(ctx context.Context) error {
		calls++
		return nil
	})

	if err := coord.Run(context.Background()); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if err := coord.Run(context.Background()); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("close function ran %d times, want 1", calls)
	}
}

func TestRunConcurrentCallsCloseOnce(t *testing.T) {
	coord := NewCoordinator(DefaultConfig(), nil)

	var mu sync.Mutex
	var calls int
	coord.Register("cache", func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = coord.Run(context.Background())
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("close function ran %d times, want 1", calls)
	}
}

func TestRunContinuesPastErrors(t *testing.T) {
	coord := NewCoordinator(DefaultConfig(), nil)

	closeErr := errors.New("flush failed")
	var closed []string

	coord.Register("cache", func(ctx context.Context) error {
		closed = append(closed, "cache")
		return nil
	})
	coord.Register("documents", func(ctx context.Context) error {
		closed = append(closed, "documents")
		return closeErr
	})

	err := coord.Run(context.Background())
	if !errors.Is(err, closeErr) {
		t.Errorf("Run error = %v, want wrapped %v", err, closeErr)
	}

	if len(closed) != 2 || closed[0] != "documents" || closed[1] != "cache" {
		t.Errorf("closed = %v, want [documents cache]", closed)
	}
}

func TestRunEnforcesEntryBudget(t *testing.T) {
	coord := NewCoordinator(Config{EntryTimeout: 20 * time.Millisecond}, nil)

	coord.Register("cache", func(ctx context.Context) error {
		// Ignores its context on purpose.
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	coord.Register("documents", func(ctx context.Context) error {
		return nil
	})

	start := time.Now()
	err := coord.Run(context.Background())
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed >= 200*time.Millisecond {
		t.Errorf("Run took %v, want well under the stuck entry's 200ms", elapsed)
	}
}

func TestRunEmpty(t *testing.T) {
	coord := NewCoordinator(DefaultConfig(), nil)

	if err := coord.Run(context.Background()); err != nil {
		t.Errorf("Run with no entries failed: %v", err)
	}
}

func TestRegisterNilIgnored(t *testing.T) {
	coord := NewCoordinator(DefaultConfig(), nil)
	coord.Register("cache", nil)

	if err := coord.Run(context.Background()); err != nil {
		t.Errorf("Run failed: %v", err)
	}
}

func TestDoneUnblocksAfterRun(t *testing.T) {
	coord := NewCoordinator(DefaultConfig(), nil)
	coord.Register("cache", func(ctx context.Context) error { return nil })

	select {
	case <-coord.Done():
		t.Fatal("Done closed before Run")
	default:
	}

	if err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	select {
	case <-coord.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Run")
	}
}
