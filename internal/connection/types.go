package connection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/paperdock/paperdock/internal/backoff"
)

// Errors
var (
	// ErrNotReady is returned by Client() before the connection reaches Ready.
	// Request handlers map it to a service-unavailable response.
	ErrNotReady = errors.New("connection not ready")

	// ErrMaxRetries marks a connection that exhausted its retry budget. It is
	// surfaced through the failed event and through Connect on a Failed
	// manager, never from the retry loop itself.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// State is the lifecycle state of a managed connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateReady        State = "ready"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// States lists every lifecycle state.
var States = []State{
	StateDisconnected,
	StateConnecting,
	StateReady,
	StateReconnecting,
	StateFailed,
}

// Event identifies a lifecycle transition observers can subscribe to.
// Event names match the destination state of the transition.
type Event string

const (
	EventConnecting   Event = "connecting"
	EventReady        Event = "ready"
	EventDisconnected Event = "disconnected"
	EventReconnecting Event = "reconnecting"
	EventFailed       Event = "failed"
)

// events lists every lifecycle event, used by OnAll.
var events = []Event{
	EventConnecting,
	EventReady,
	EventDisconnected,
	EventReconnecting,
	EventFailed,
}

// Client is the opaque handle to a backing service. The manager owns the
// handle exclusively; other components reach it only through Manager.Client.
type Client interface {
	// Ping verifies the underlying connection is alive.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// Notifier is implemented by clients that detect failures themselves (for
// example a websocket read loop). The manager consumes Errors instead of
// polling Ping while the connection is Ready.
type Notifier interface {
	Errors() <-chan error
}

// Factory dials a backing service and returns a live client. A non-nil error
// means no connection was established; the manager retries per its policy.
type Factory func(ctx context.Context) (Client, error)

// Transition describes a single state change, delivered to event handlers.
type Transition struct {
	Name    string        // Service name
	From    State         // State before the transition
	To      State         // State after the transition
	Retries int           // Failed attempts so far (0 after reaching Ready)
	Wait    time.Duration // Scheduled delay before the next attempt (reconnecting only)
	Err     error         // Failure that caused the transition, nil otherwise
	At      time.Time     // When the transition happened
}

// Handler receives lifecycle transitions. Handlers run synchronously on the
// transitioning goroutine and see transitions in the order they happen: keep
// them fast. Reading accessors (State, Stats, Client) from a handler is safe;
// calling Connect or Disconnect is not.
type Handler func(Transition)

// Config configures a connection manager.
type Config struct {
	ConnectTimeout time.Duration  // Bound on a single dial attempt
	PingInterval   time.Duration  // Health probe cadence for non-Notifier clients
	Backoff        backoff.Policy // Retry delay policy
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		PingInterval:   15 * time.Second,
		Backoff:        backoff.Default(),
	}
}

// Stats is a point-in-time snapshot of a connection, used by health
// endpoints and diagnostics.
type Stats struct {
	Name      string
	ID        uuid.UUID // Per-connection; a fresh ID is assigned on every successful dial
	State     State
	Retries   int
	LastError string    // Empty if the last attempt succeeded
	ReadyAt   time.Time // Zero until the connection first reaches Ready
}
