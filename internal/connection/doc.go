// Package connection implements the lifecycle manager for backing-service
// connections.
//
// Each Manager owns one named connection and drives its state machine:
//
//	Disconnected -> Connecting -> Ready
//	Ready        -> Reconnecting -> Ready   (runtime failure, automatic retry)
//	Connecting | Reconnecting -> Failed     (retry budget exhausted, terminal)
//	any state    -> Disconnected            (explicit Disconnect)
//
// Retries are scheduled by a backoff.Policy. Only the first connection
// attempt reports its error to the caller; later attempts surface through
// lifecycle events, consumed by logging and metrics listeners. The underlying
// client handle is exclusively owned by the manager and is non-nil exactly
// while the connection is Ready.
package connection
