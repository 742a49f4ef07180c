package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager owns the lifecycle of one named backing-service connection: it
// drives connect, retry with backoff, runtime failure detection, and
// disconnect, and emits events on every state change.
type Manager interface {
	// Connect establishes the connection. It is idempotent: if the manager is
	// already Ready, Connecting, or Reconnecting the call returns nil
	// immediately without starting a second attempt. Only the initiating call
	// on a Disconnected manager can return a dial error; automatic retries
	// after that surface through events only. On a Failed manager Connect
	// returns the terminal error.
	Connect(ctx context.Context) error

	// Disconnect closes the connection and cancels any pending retry. It is
	// idempotent: calling it on a Disconnected or Failed manager is a no-op.
	Disconnect(ctx context.Context) error

	// Client returns the underlying handle, or ErrNotReady unless the
	// connection is Ready. Ownership stays with the manager.
	Client() (Client, error)

	// On registers a handler for a lifecycle event. Multiple handlers per
	// event are allowed; ordering between handlers is unspecified.
	On(event Event, h Handler)

	// Name returns the service name.
	Name() string

	// State returns the current lifecycle state.
	State() State

	// Stats returns a snapshot of the connection for health reporting.
	Stats() Stats
}

// manager implements the Manager interface.
type manager struct {
	name    string
	cfg     Config
	factory Factory
	logger  *slog.Logger

	// emitMu serializes transitions with their handler delivery so handlers
	// observe transitions in the order they happen. Lock order: emitMu
	// before mu.
	emitMu sync.Mutex

	mu         sync.Mutex
	state      State
	id         uuid.UUID // Names the live connection; reassigned on every successful dial
	client     Client
	retries    int
	lastErr    error
	readyAt    time.Time
	timer      *time.Timer // Pending retry, nil unless Reconnecting
	gen        uint64      // Bumped by Disconnect to invalidate in-flight work
	sessCtx    context.Context
	sessCancel context.CancelFunc
	watchStop  chan struct{}

	wg sync.WaitGroup

	handlersMu sync.RWMutex
	handlers   map[Event][]Handler
}

// NewManager creates a manager for the named service. The factory is invoked
// once per connection attempt; cfg is read once and never mutated afterwards.
func NewManager(name string, cfg Config, factory Factory, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &manager{
		name:     name,
		id:       uuid.New(),
		cfg:      cfg,
		factory:  factory,
		logger:   logger.With("service", name),
		state:    StateDisconnected,
		handlers: make(map[Event][]Handler),
	}
}

// OnAll registers a handler for every lifecycle event of m.
func OnAll(m Manager, h Handler) {
	for _, ev := range events {
		m.On(ev, h)
	}
}

// Connect establishes the connection.
func (m *manager) Connect(ctx context.Context) error {
	m.emitMu.Lock()
	m.mu.Lock()

	switch m.state {
	case StateReady, StateConnecting, StateReconnecting:
		// An attempt is live or the connection is up; observe it, don't race it.
		m.mu.Unlock()
		m.emitMu.Unlock()
		return nil
	case StateFailed:
		err := m.lastErr
		m.mu.Unlock()
		m.emitMu.Unlock()
		return fmt.Errorf("connect %s: %w", m.name, err)
	}

	m.sessCtx, m.sessCancel = context.WithCancel(context.Background())
	gen := m.gen
	tr := m.transitionLocked(StateConnecting, 0, nil)
	m.mu.Unlock()

	m.emit(tr)
	m.emitMu.Unlock()

	return m.attempt(ctx, gen, true)
}

// attempt performs a single dial. On failure it schedules the next retry or
// marks the connection Failed. The returned error is non-nil only when first
// is true (the startup path).
func (m *manager) attempt(ctx context.Context, gen uint64, first bool) error {
	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	client, err := m.factory(dialCtx)
	cancel()

	m.emitMu.Lock()
	m.mu.Lock()

	if m.gen != gen || (m.state != StateConnecting && m.state != StateReconnecting) {
		// Disconnected while dialing. Discard whatever the dial produced.
		m.mu.Unlock()
		m.emitMu.Unlock()
		if client != nil {
			client.Close(context.Background())
		}
		return nil
	}

	if err == nil {
		m.client = client
		m.id = uuid.New()
		m.retries = 0
		m.lastErr = nil
		m.readyAt = time.Now()
		stop := make(chan struct{})
		m.watchStop = stop
		sessCtx := m.sessCtx
		id := m.id
		// Register the watcher before releasing the lock so a concurrent
		// Disconnect waits for it.
		m.wg.Add(1)
		tr := m.transitionLocked(StateReady, 0, nil)
		m.mu.Unlock()

		m.logger.Info("connection ready", "conn_id", id)

		go m.watch(sessCtx, client, gen, stop)

		m.emit(tr)
		m.emitMu.Unlock()
		return nil
	}

	m.retries++
	m.lastErr = err
	retries := m.retries

	delay, ok := m.cfg.Backoff.Next(retries)
	if !ok {
		m.lastErr = fmt.Errorf("%w after %d attempts: %v", ErrMaxRetries, retries, err)
		if m.sessCancel != nil {
			m.sessCancel()
		}
		tr := m.transitionLocked(StateFailed, 0, m.lastErr)
		m.mu.Unlock()

		m.logger.Error("connection failed permanently",
			"attempts", retries,
			"error", err,
		)

		m.emit(tr)
		m.emitMu.Unlock()
		if first {
			return fmt.Errorf("connect %s: %w", m.name, err)
		}
		return nil
	}

	m.timer = time.AfterFunc(delay, func() { m.retry(gen) })
	tr := m.transitionLocked(StateReconnecting, delay, err)
	m.mu.Unlock()

	m.logger.Warn("connection attempt failed",
		"retries", retries,
		"next_attempt_in", delay,
		"error", err,
	)

	m.emit(tr)
	m.emitMu.Unlock()
	if first {
		return fmt.Errorf("connect %s: %w", m.name, err)
	}
	return nil
}

// retry runs on the backoff timer goroutine.
func (m *manager) retry(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	ctx := m.sessCtx
	m.mu.Unlock()

	m.attempt(ctx, gen, false)
}

// watch detects runtime failures after the connection reaches Ready. Clients
// that implement Notifier push errors; everything else is polled with Ping.
func (m *manager) watch(ctx context.Context, client Client, gen uint64, stop chan struct{}) {
	defer m.wg.Done()

	if n, ok := client.(Notifier); ok {
		select {
		case <-stop:
			return
		case err, open := <-n.Errors():
			if !open {
				err = errors.New("client error channel closed")
			}
			m.runtimeError(gen, err)
		}
		return
	}

	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
			err := client.Ping(pingCtx)
			cancel()

			if err != nil {
				m.runtimeError(gen, err)
				return
			}
		}
	}
}

// runtimeError moves a Ready connection into the retry loop. The backoff ramp
// restarts, so the first re-dial is immediate.
func (m *manager) runtimeError(gen uint64, err error) {
	m.emitMu.Lock()
	m.mu.Lock()
	if m.gen != gen || m.state != StateReady {
		m.mu.Unlock()
		m.emitMu.Unlock()
		return
	}

	client := m.client
	m.client = nil
	m.retries = 0
	m.lastErr = err
	m.watchStop = nil

	delay, _ := m.cfg.Backoff.Next(m.retries)
	m.timer = time.AfterFunc(delay, func() { m.retry(gen) })
	tr := m.transitionLocked(StateReconnecting, delay, err)
	m.mu.Unlock()

	m.logger.Warn("connection lost", "error", err)
	m.emit(tr)
	m.emitMu.Unlock()

	// Close the dead client last; a slow Close must not delay event delivery.
	if client != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), m.cfg.ConnectTimeout)
		if cerr := client.Close(closeCtx); cerr != nil {
			m.logger.Debug("failed to close dead client", "error", cerr)
		}
		cancel()
	}
}

// Disconnect closes the connection.
func (m *manager) Disconnect(ctx context.Context) error {
	m.emitMu.Lock()
	m.mu.Lock()

	switch m.state {
	case StateDisconnected, StateFailed:
		m.mu.Unlock()
		m.emitMu.Unlock()
		return nil
	}

	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.watchStop != nil {
		close(m.watchStop)
		m.watchStop = nil
	}
	if m.sessCancel != nil {
		m.sessCancel()
		m.sessCancel = nil
	}
	client := m.client
	m.client = nil
	m.retries = 0
	tr := m.transitionLocked(StateDisconnected, 0, nil)
	m.mu.Unlock()

	m.logger.Info("disconnected")
	m.emit(tr)
	m.emitMu.Unlock()

	var closeErr error
	if client != nil {
		closeErr = client.Close(ctx)
	}

	// Wait for the watch goroutine, bounded by the caller's context. emitMu
	// must be free here: the watcher may be parked on it with an error this
	// disconnect has invalidated.
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("disconnect timed out waiting for watcher")
	}

	if closeErr != nil {
		return fmt.Errorf("close %s: %w", m.name, closeErr)
	}
	return nil
}

// Client returns the underlying handle.
func (m *manager) Client() (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReady {
		return nil, ErrNotReady
	}
	return m.client, nil
}

// On registers an event handler.
func (m *manager) On(event Event, h Handler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.handlers[event] = append(m.handlers[event], h)
}

// Name returns the service name.
func (m *manager) Name() string {
	return m.name
}

// State returns the current state.
func (m *manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns a snapshot for health reporting.
func (m *manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Name:    m.name,
		ID:      m.id,
		State:   m.state,
		Retries: m.retries,
		ReadyAt: m.readyAt,
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

// transitionLocked mutates state and builds the Transition to emit. The
// caller must hold emitMu and m.mu, and emit after releasing m.mu.
func (m *manager) transitionLocked(to State, wait time.Duration, err error) Transition {
	tr := Transition{
		Name:    m.name,
		From:    m.state,
		To:      to,
		Retries: m.retries,
		Wait:    wait,
		Err:     err,
		At:      time.Now(),
	}
	m.state = to
	return tr
}

// emit delivers a transition to the handlers registered for its event. Callers
// hold emitMu and have released m.mu, so deliveries happen in transition order
// and handlers may call the manager's read accessors.
func (m *manager) emit(tr Transition) {
	m.handlersMu.RLock()
	hs := make([]Handler, len(m.handlers[Event(tr.To)]))
	copy(hs, m.handlers[Event(tr.To)])
	m.handlersMu.RUnlock()

	for _, h := range hs {
		h(tr)
	}
}
