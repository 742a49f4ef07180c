// Package registry holds the process-wide set of backing-service
// connections, one manager per service name. It is a pure namespace: all
// retry and lifecycle logic lives in the connection package. Construct a
// single Registry at startup and inject it wherever lookups are needed.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paperdock/paperdock/internal/connection"
)

// Errors
var (
	ErrDuplicateService = errors.New("service already registered")
	ErrUnknownService   = errors.New("unknown service")
	ErrNilManager       = errors.New("nil connection manager")
)

// Registry maps service names to their connection managers.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]connection.Manager
	order []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		conns: make(map[string]connection.Manager),
	}
}

// Register adds a manager under the given name. Registering the same name
// twice is a programming error and fails with ErrDuplicateService.
func (r *Registry) Register(name string, m connection.Manager) error {
	if m == nil {
		return fmt.Errorf("register %q: %w", name, ErrNilManager)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[name]; exists {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateService)
	}

	r.conns[name] = m
	r.order = append(r.order, name)
	return nil
}

// Get returns the manager registered under name.
func (r *Registry) Get(name string) (connection.Manager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.conns[name]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", name, ErrUnknownService)
	}
	return m, nil
}

// Names returns the registered service names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Each calls fn for every registered manager in registration order.
func (r *Registry) Each(fn func(name string, m connection.Manager)) {
	r.mu.RLock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	conns := make(map[string]connection.Manager, len(r.conns))
	for k, v := range r.conns {
		conns[k] = v
	}
	r.mu.RUnlock()

	for _, name := range names {
		fn(name, conns[name])
	}
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
