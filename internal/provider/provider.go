// Package provider defines the capability contract every business-data source
// implements, plus the registry and request pacing shared by all adapters.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// ErrRateLimited is returned when an adapter's own pacing or the upstream
// service refuses the request for rate reasons. Scoped to that adapter;
// never fatal to aggregation.
var ErrRateLimited = errors.New("provider: rate limited")

// ErrNoResults is returned when the upstream explicitly reports an empty
// result set. Adapters never return it for an ordinary zero-match search
// (that is an empty slice, nil error); it exists for upstreams whose API
// signals "nothing here" as an error condition.
var ErrNoResults = errors.New("provider: no results")

// TransportError wraps a network or protocol failure talking to a source.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider %s: transport failure: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Provider is the single capability every data source is polymorphic over.
// Implementations apply their own request pacing and return typed errors;
// the aggregator depends only on this interface.
type Provider interface {
	// Name returns the configuration-selectable adapter identifier.
	Name() string

	// Search returns up to limit candidate leads for keyword in location.
	// Zero matches is an empty slice, not an error.
	Search(ctx context.Context, keyword, location string, limit int) ([]model.Lead, error)
}

// Registry maps adapter names to implementations, preserving registration
// order for deterministic iteration.
type Registry struct {
	providers map[string]Provider
	order     []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	name := p.Name()
	if _, ok := r.providers[name]; !ok {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, eris.Errorf("provider: unknown adapter %q", name)
	}
	return p, nil
}

// Select returns the named providers in registration order. An empty
// allow-list selects every registered provider. Unknown names are skipped:
// an unconfigured adapter is a soft condition, never fatal.
func (r *Registry) Select(names []string) []Provider {
	if len(names) == 0 {
		out := make([]Provider, 0, len(r.order))
		for _, name := range r.order {
			out = append(out, r.providers[name])
		}
		return out
	}

	var out []Provider
	for _, name := range r.order {
		for _, want := range names {
			if name == want {
				out = append(out, r.providers[name])
				break
			}
		}
	}
	return out
}

// Names returns all registered adapter names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
