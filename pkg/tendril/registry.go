package tendril

import (
	"sort"
	"sync"

	"github.com/vango-dev/tendril/pkg/reactive"
)

// Registry holds scopes exported with #jsvar.
type Registry struct {
	mu     sync.RWMutex
	scopes map[string]*reactive.Scope
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{scopes: make(map[string]*reactive.Scope)}
}

// Register exports scope as name, replacing an earlier export.
func (r *Registry) Register(name string, scope *reactive.Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes[name] = scope
}

// Unregister removes name if it still refers to scope.
func (r *Registry) Unregister(name string, scope *reactive.Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scopes[name] == scope {
		delete(r.scopes, name)
	}
}

// Lookup returns the scope exported as name.
func (r *Registry) Lookup(name string) (*reactive.Scope, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scopes[name]
	return s, ok
}

// Names returns the exported names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scopes))
	for n := range r.scopes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
