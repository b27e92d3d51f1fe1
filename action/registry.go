package action

import (
	"context"
	"fmt"
	"sync"
)

// Action is a named capability the decision source can request. Run
// returns the result text; a non-nil error marks the call as failed and its
// message becomes the result text.
type Action interface {
	Definition() Definition
	Run(ctx context.Context, args Args) (string, error)
}

// Registry holds the actions available to a session. It is built once at
// startup and only read afterwards.
type Registry struct {
	actions map[string]Action
	order   []string
	mu      sync.RWMutex
}

// NewRegistry creates a registry holding actions.
func NewRegistry(actions ...Action) (*Registry, error) {
	r := &Registry{actions: make(map[string]Action)}
	for _, a := range actions {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an action. Names are unique.
func (r *Registry) Register(a Action) error {
	name := a.Definition().Name
	if name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	r.actions[name] = a
	r.order = append(r.order, name)
	return nil
}

// Get returns the action registered under name.
func (r *Registry) Get(name string) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return a, nil
}

// Definitions returns every action's definition in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.actions[name].Definition())
	}
	return defs
}

// Names returns the registered action names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Dispatch validates args against the named action's parameters and runs
// it. Validation failures are returned as *ValidationError without running
// the action.
func (r *Registry) Dispatch(ctx context.Context, name string, args Args) (string, error) {
	a, err := r.Get(name)
	if err != nil {
		return "", err
	}
	if err := a.Definition().Validate(args); err != nil {
		return "", err
	}
	return a.Run(ctx, args)
}
