// Package docstore provides the PostgreSQL connection pool behind the
// "documents" service.
//
// The store is a thin wrapper over pgxpool:
//   - Connect parses the service URL, applies pool sizing and timeouts,
//     and verifies the connection with a ping before returning
//   - Ping and Close satisfy the connection manager's client contract
//   - Pool exposes the underlying pool for query code
//
// Socket-level read budgets are enforced server side via
// statement_timeout, set from the configured socket timeout.
package docstore
