package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultEntryTimeout bounds how long a single close function may run.
const DefaultEntryTimeout = 5 * time.Second

// CloseFunc releases one resource. It must respect ctx cancellation.
type CloseFunc func(ctx context.Context) error

// Config holds coordinator settings.
type Config struct {
	// EntryTimeout is the per-entry close budget.
	EntryTimeout time.Duration
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		EntryTimeout: DefaultEntryTimeout,
	}
}

type entry struct {
	name  string
	close CloseFunc
}

// Coordinator runs registered close functions in reverse registration
// order, exactly once.
type Coordinator struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	entries []entry

	once sync.Once
	done chan struct{}
}

// NewCoordinator creates a coordinator with the given configuration.
func NewCoordinator(cfg Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.EntryTimeout <= 0 {
		cfg.EntryTimeout = DefaultEntryTimeout
	}

	return &Coordinator{
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Register appends a close function under a name used in logs. Entries
// registered first are closed last.
func (c *Coordinator) Register(name string, fn CloseFunc) {
	if fn == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry{name: name, close: fn})
}

// Run closes all registered entries in reverse registration order and
// returns the joined close errors. Only the first call performs the
// teardown; later calls return nil immediately.
func (c *Coordinator) Run(ctx context.Context) error {
	var errs []error

	c.once.Do(func() {
		defer close(c.done)

		c.mu.Lock()
		entries := make([]entry, len(c.entries))
		copy(entries, c.entries)
		c.mu.Unlock()

		c.logger.Info("shutting down", "entries", len(entries))

		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			start := time.Now()
			if err := c.closeEntry(ctx, e); err != nil {
				c.logger.Error("shutdown entry failed",
					"entry", e.name,
					"elapsed", time.Since(start),
					"error", err)
				errs = append(errs, fmt.Errorf("close %s: %w", e.name, err))
				continue
			}
			c.logger.Info("shutdown entry closed",
				"entry", e.name,
				"elapsed", time.Since(start))
		}

		c.logger.Info("shutdown complete", "errors", len(errs))
	})

	return errors.Join(errs...)
}

// closeEntry runs one close function under the per-entry budget. The
// function runs in its own goroutine so an entry that ignores its
// context cannot stall the teardown past the budget.
func (c *Coordinator) closeEntry(ctx context.Context, e entry) error {
	cctx, cancel := context.WithTimeout(ctx, c.cfg.EntryTimeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- e.close(cctx)
	}()

	select {
	case err := <-result:
		return err
	case <-cctx.Done():
		return fmt.Errorf("close budget exceeded: %w", cctx.Err())
	}
}

// Done returns a channel closed once the first Run has finished.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}
