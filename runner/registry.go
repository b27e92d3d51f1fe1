package runner

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrEmptyLanguage   = errors.New("language is empty")
	ErrUnknownLanguage = errors.New("unknown language")
)

// Resolver looks up the Runner for a language identifier.
type Resolver interface {
	Resolve(language string) (Runner, error)
}

// Registry maps language identifiers to runners. Lookups are exact and
// case-sensitive. When a fallback is configured, unknown identifiers
// resolve to it instead of failing.
type Registry struct {
	runners  map[string]Runner
	order    []string
	fallback Runner
	mu       sync.RWMutex
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFallback makes unknown identifiers resolve to r.
func WithFallback(r Runner) RegistryOption {
	return func(reg *Registry) { reg.fallback = r }
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{runners: make(map[string]Runner)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces the runner for language.
func (r *Registry) Register(language string, rn Runner) error {
	if language == "" {
		return ErrEmptyLanguage
	}
	if rn == nil {
		return fmt.Errorf("register %s: nil runner", language)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runners[language]; !ok {
		r.order = append(r.order, language)
	}
	r.runners[language] = rn
	return nil
}

// Resolve returns the runner registered for language, the fallback when
// there is none, or ErrUnknownLanguage.
func (r *Registry) Resolve(language string) (Runner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rn, ok := r.runners[language]; ok {
		return rn, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, language)
}

// Has reports whether language has an explicitly registered runner.
func (r *Registry) Has(language string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.runners[language]
	return ok
}

// Languages returns the registered identifiers in registration order.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
