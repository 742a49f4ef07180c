package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/paperdock/paperdock/internal/connection"
)

// fakeManager is a no-op connection.Manager for registry tests.
type fakeManager struct {
	name string
}

func (f *fakeManager) Connect(ctx context.Context) error            { return nil }
func (f *fakeManager) Disconnect(ctx context.Context) error         { return nil }
func (f *fakeManager) Client() (connection.Client, error)           { return nil, connection.ErrNotReady }
func (f *fakeManager) On(ev connection.Event, h connection.Handler) {}
func (f *fakeManager) Name() string                                 { return f.name }
func (f *fakeManager) State() connection.State                      { return connection.StateDisconnected }

func (f *fakeManager) Stats() connection.Stats {
	return connection.Stats{Name: f.name, State: connection.StateDisconnected}
}

func TestRegisterAndGet(t *testing.T) {
	r := New()
	cache := &fakeManager{name: "cache"}

	if err := r.Register("cache", cache); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := r.Get("cache")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != connection.Manager(cache) {
		t.Error("Get returned a different manager than was registered")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()

	if err := r.Register("cache", &fakeManager{name: "cache"}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	err := r.Register("cache", &fakeManager{name: "cache"})
	if !errors.Is(err, ErrDuplicateService) {
		t.Errorf("second Register error = %v, want ErrDuplicateService", err)
	}

	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegisterNil(t *testing.T) {
	r := New()

	err := r.Register("cache", nil)
	if !errors.Is(err, ErrNilManager) {
		t.Errorf("Register(nil) error = %v, want ErrNilManager", err)
	}
}

func TestGetUnknown(t *testing.T) {
	r := New()

	_, err := r.Get("documents")
	if !errors.Is(err, ErrUnknownService) {
		t.Errorf("Get error = %v, want ErrUnknownService", err)
	}
}

func TestNamesPreserveRegistrationOrder(t *testing.T) {
	r := New()

	for _, name := range []string{"cache", "documents", "events"} {
		if err := r.Register(name, &fakeManager{name: name}); err != nil {
			t.Fatalf("Register(%q) failed: %v", name, err)
		}
	}

	names := r.Names()
	want := []string{"cache", "documents", "events"}
	if len(names) != len(want) {
		t.Fatalf("Names() returned %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestEachVisitsAllInOrder(t *testing.T) {
	r := New()

	for _, name := range []string{"cache", "documents"} {
		if err := r.Register(name, &fakeManager{name: name}); err != nil {
			t.Fatalf("Register(%q) failed: %v", name, err)
		}
	}

	var visited []string
	r.Each(func(name string, m connection.Manager) {
		visited = append(visited, name)
		if m.Name() != name {
			t.Errorf("Each passed manager %q under name %q", m.Name(), name)
		}
	})

	if len(visited) != 2 || visited[0] != "cache" || visited[1] != "documents" {
		t.Errorf("Each visited %v, want [cache documents]", visited)
	}
}
