package reactive

// Tracker wraps a scope and records every signal read through it.
//
// It is used to discover the dependencies of an expression by evaluating
// it once; writes and existence checks pass straight through.
type Tracker struct {
	scope *Scope
	seen  map[uint64]struct{}
	deps  []*Signal
}

// Track returns a tracker reading through scope.
func Track(scope *Scope) *Tracker {
	return &Tracker{
		scope: scope,
		seen:  make(map[uint64]struct{}),
	}
}

// Get reads name and records the resolved signal as a dependency.
func (t *Tracker) Get(name string) any {
	sig := t.scope.Signal(name)
	if _, ok := t.seen[sig.ID()]; !ok {
		t.seen[sig.ID()] = struct{}{}
		t.deps = append(t.deps, sig)
	}
	return sig.Value()
}

// Set writes name without recording it.
func (t *Tracker) Set(name string, value any) {
	t.scope.Set(name, value)
}

// Has reports whether name exists in the tracked scope chain.
func (t *Tracker) Has(name string) bool {
	return t.scope.Has(name)
}

// Signals returns the recorded dependencies in first-read order.
func (t *Tracker) Signals() []*Signal {
	return t.deps
}
