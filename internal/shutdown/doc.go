// Package shutdown provides ordered teardown of process resources.
//
// Components register close functions during startup. On shutdown the
// coordinator runs them exactly once, in reverse registration order, so
// dependents close before their dependencies. Each close function gets a
// bounded time budget; a slow or failing entry is logged and skipped
// rather than allowed to stall the rest of the teardown.
//
// Key behaviors:
//   - Register is append-only and safe for concurrent use
//   - Run is one-shot: concurrent and repeat calls return immediately
//   - close errors are collected and returned joined, never re-raised
//   - Done unblocks once the first Run has finished
package shutdown
