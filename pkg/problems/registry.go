// Package problems holds ready-made problem definitions and a registry
// that maps problem names to root-state factories, so services can
// start a search from a name and a JSON parameter blob.
package problems

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	serrors "github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/search"
)

// Factory builds a root state from problem-specific JSON parameters.
type Factory func(params json.RawMessage) (search.State, error)

// Registry manages root-state factories for named problems.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty problem registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry creates a registry with all built-in problems
// registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("nqueens", QueensFactory)
	r.Register("wordsquare", WordSquareFactory)
	return r
}

// Register registers a factory for a problem name, replacing any
// previous registration.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Root builds the root state for a named problem.
func (r *Registry) Root(name string, params json.RawMessage) (search.State, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, serrors.NewError("PROBLEM_NOT_FOUND",
			fmt.Sprintf("no problem registered under %q", name),
			serrors.ErrProblemNotFound)
	}
	return factory(params)
}

// HasProblem checks if a factory exists for a problem name.
func (r *Registry) HasProblem(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// RegisteredNames returns all registered problem names, sorted.
func (r *Registry) RegisteredNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
