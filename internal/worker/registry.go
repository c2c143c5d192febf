// internal/worker/registry.go
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Handler executes one task and returns its results as JSON. Handlers must be
// idempotent: redelivered messages re-run them and overwrite the same record.
type Handler func(ctx context.Context, taskID string, params json.RawMessage) (json.RawMessage, error)

// Registry maps task names to their handlers. The set is closed at startup:
// duplicate registrations are rejected, and dispatching an unknown name is a
// configuration fault.
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewRegistry creates a new task handler registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a new task handler to the registry
func (r *Registry) Register(name string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("task handler %s already registered", name)
	}

	r.handlers[name] = h
	return nil
}

// Get retrieves a task handler from the registry
func (r *Registry) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, exists := r.handlers[name]
	if !exists {
		return nil, fmt.Errorf("task handler %s not found", name)
	}

	return h, nil
}
