// Package probe provides the external-capability surface for stars: probes
// are the tools a directive grants its star, invoked during execution and
// recorded on the run as tool calls.
package probe

import (
	"context"
	"fmt"
	"sync"
)

// Probe is one external capability a star may invoke.
type Probe interface {
	// Name uniquely identifies the probe in a Registry.
	Name() string

	// Description explains the probe for model-facing tool specs.
	Description() string

	// Call invokes the probe. Input and output are JSON-shaped maps.
	Call(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Registry holds the probes available to stars, keyed by name. Safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	probes map[string]Probe
}

// NewRegistry creates an empty probe registry.
func NewRegistry() *Registry {
	return &Registry{probes: make(map[string]Probe)}
}

// Register adds a probe under its own name, replacing any previous probe
// with that name.
func (r *Registry) Register(p Probe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes[p.Name()] = p
}

// Get returns the named probe.
func (r *Registry) Get(name string) (Probe, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.probes[name]
	return p, ok
}

// Names returns the registered probe names in unspecified order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.probes))
	for name := range r.probes {
		names = append(names, name)
	}
	return names
}

// Call invokes the named probe, failing when it is not registered.
func (r *Registry) Call(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("probe not registered: %s", name)
	}
	return p.Call(ctx, input)
}
