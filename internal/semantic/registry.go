package semantic

import (
	"fmt"
	"sync"
)

// Registry holds named embedding providers a deployment has wired up.
// Grounded on steveyegge-beads/internal/gate.Registry's by-ID map shape.
// Nothing in the validation pipeline holds a Registry; it exists so
// cmd/converge can construct and expose providers (e.g. for a future
// semantic_conflicts enforcement mode) without the core depending on
// any one of them.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]EmbeddingProvider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]EmbeddingProvider)}
}

// Register adds a provider under name. Returns an error if name is
// already taken.
func (r *Registry) Register(name string, p EmbeddingProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("semantic: provider %q already registered", name)
	}
	r.providers[name] = p
	return nil
}

// Get returns the provider registered under name, or nil if none.
func (r *Registry) Get(name string) EmbeddingProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	return names
}
