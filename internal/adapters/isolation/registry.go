package isolation

import (
	"slices"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// Provider materializes a compiler implementation inside its private scope.
type Provider interface {
	// Implementation returns the id that artifact manifests refer to.
	Implementation() string
	// Populate defines the implementation's symbols. It must define SymbolCompiler.
	Populate(scope *Scope, manifest Manifest) error
}

// Registry maps implementation ids to providers.
// It is passed to the loader explicitly; there is no global registration.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry holding the given providers.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a provider.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := p.Implementation()
	if _, exists := r.providers[id]; exists {
		return zerr.With(domain.ErrDuplicateProvider, "implementation", id)
	}
	r.providers[id] = p
	return nil
}

// Lookup returns the provider for an implementation id.
func (r *Registry) Lookup(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// Implementations returns the registered ids, sorted.
func (r *Registry) Implementations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
