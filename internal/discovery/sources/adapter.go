// Package sources defines the pluggable adapter interface that every
// external candidate data provider implements, plus the wrappers (rate
// limiting, retry, circuit breaking) the pipeline composes around them.
// The pipeline core only ever depends on the Adapter interface, never on a
// source's scraping mechanics.
package sources

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ballotwatch/internal/discovery/models"
)

// Query scopes one fetch. An empty Districts slice means all districts for
// the requested chambers.
type Query struct {
	Chambers  []models.Chamber
	Districts []int
}

// Adapter is the universal interface all candidate sources must implement.
type Adapter interface {
	// Name returns a unique identifier for this source.
	Name() string

	// Priority ranks trustworthiness; lower is more trusted.
	Priority() int

	// Fetch returns raw candidate mentions for the query scope.
	Fetch(ctx context.Context, q Query) ([]models.RawCandidate, error)
}

// Registry maintains all registered adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(a Adapter) error {
	name := strings.ToLower(a.Name())
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("source %s already registered", a.Name())
	}
	r.adapters[name] = a
	return nil
}

// Get retrieves an adapter by name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[strings.ToLower(name)]
	return a, ok
}

// Select returns the named adapters in ascending priority order (most
// trusted first). Unknown names are reported rather than silently skipped.
// An empty name list selects every registered adapter.
func (r *Registry) Select(names []string) ([]Adapter, error) {
	var out []Adapter
	if len(names) == 0 {
		for _, a := range r.adapters {
			out = append(out, a)
		}
	} else {
		for _, name := range names {
			a, ok := r.Get(name)
			if !ok {
				return nil, fmt.Errorf("source %s not registered", name)
			}
			out = append(out, a)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() < out[j].Priority()
		}
		return out[i].Name() < out[j].Name()
	})
	return out, nil
}
