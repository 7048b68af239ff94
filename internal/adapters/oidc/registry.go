package oidc

import (
	"fmt"

	"github.com/target/extranet-gate/internal/ports"
)

// Registry holds the configured federated providers keyed by id,
// preserving configuration order for listing.
type Registry struct {
	byID  map[string]ports.AuthProvider
	order []string
}

var _ ports.ProviderRegistry = (*Registry)(nil)

// NewRegistry builds a registry from the given providers. Duplicate ids
// are a configuration error.
func NewRegistry(providers ...ports.AuthProvider) (*Registry, error) {
	r := &Registry{byID: make(map[string]ports.AuthProvider, len(providers))}
	for _, p := range providers {
		id := p.ID()
		if id == "" {
			return nil, fmt.Errorf("provider with empty id")
		}
		if _, exists := r.byID[id]; exists {
			return nil, fmt.Errorf("duplicate provider id %q", id)
		}
		r.byID[id] = p
		r.order = append(r.order, id)
	}
	return r, nil
}

// Provider returns the provider registered under id.
func (r *Registry) Provider(id string) (ports.AuthProvider, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// IDs returns the provider ids in configuration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
