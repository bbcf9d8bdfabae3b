// Package registry maps provider identifiers to driver factories and turns a
// user identity into an initialized driver.
package registry

import (
	"errors"
	"fmt"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
)

// Sentinel errors for registry and resolution.
var (
	// ErrProviderNotRegistered indicates no driver factory is registered for
	// the requested provider type.
	ErrProviderNotRegistered = errors.New("provider not registered")

	// ErrProviderNotConfigured indicates a driver failed to reach the
	// configured state after Initialize.
	ErrProviderNotConfigured = errors.New("provider not configured")
)

// Factory constructs a fresh, uninitialized driver. Each resolution gets its
// own instance; factories must never hand out shared driver state.
type Factory func() provider.Driver

// Registry holds the fixed set of driver factories. Populated at
// construction time, not hot-swappable at runtime.
type Registry struct {
	factories map[provider.ProviderType]Factory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{factories: make(map[provider.ProviderType]Factory)}
}

// Register adds a driver factory for a provider type. Registering the same
// type twice replaces the factory; this only happens during wiring.
func (r *Registry) Register(p provider.ProviderType, f Factory) {
	r.factories[p] = f
}

// Driver returns a fresh driver instance for the provider type.
func (r *Registry) Driver(p provider.ProviderType) (provider.Driver, error) {
	f, ok := r.factories[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrProviderNotRegistered)
	}
	return f(), nil
}

// Registered returns the registered provider types in a stable order.
func (r *Registry) Registered() []provider.ProviderType {
	out := make([]provider.ProviderType, 0, len(r.factories))
	for _, p := range []provider.ProviderType{
		provider.ProviderAWS, provider.ProviderGCP, provider.ProviderAzure, provider.ProviderLocal,
	} {
		if _, ok := r.factories[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
