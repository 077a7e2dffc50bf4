package reactive

import "sort"

// Scope is a per-node environment of named signals chained to a parent.
//
// A name that exists anywhere above a scope is owned by the topmost scope
// declaring it: reads and writes through any descendant reach that signal,
// so there is no shadowing. Unknown names are created lazily in the scope
// that first touched them.
type Scope struct {
	id      uint64
	parent  *Scope
	signals map[string]*Signal
	old     map[string]any
}

// NewScope creates a scope chained to parent. A nil parent makes a root.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		id:      nextID(),
		parent:  parent,
		signals: make(map[string]*Signal),
		old:     make(map[string]any),
	}
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() uint64 {
	return s.id
}

// Parent returns the parent scope, or nil for a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Root returns the topmost scope of the chain.
func (s *Scope) Root() *Scope {
	sc := s
	for sc.parent != nil {
		sc = sc.parent
	}
	return sc
}

// Has reports whether name exists in this scope or any ancestor.
func (s *Scope) Has(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.signals[name]; ok {
			return true
		}
	}
	return false
}

// Owner returns the scope whose signal a read or write of name resolves
// to: the topmost declarer along the chain, or this scope when nobody has
// declared it yet.
func (s *Scope) Owner(name string) *Scope {
	var owner *Scope
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.signals[name]; ok {
			owner = sc
		}
	}
	if owner == nil {
		return s
	}
	return owner
}

// Signal returns the signal that name resolves to, creating it lazily in
// this scope when no scope in the chain knows the name. A newly created
// signal holds nil.
func (s *Scope) Signal(name string) *Signal {
	owner := s.Owner(name)
	sig, ok := owner.signals[name]
	if !ok {
		sig = NewSignal(nil)
		owner.signals[name] = sig
	}
	return sig
}

// Lookup returns the resolved signal without creating one.
func (s *Scope) Lookup(name string) (*Signal, bool) {
	sig, ok := s.Owner(name).signals[name]
	return sig, ok
}

// Get reads name through the chain, creating a local signal if needed.
func (s *Scope) Get(name string) any {
	return s.Signal(name).Value()
}

// Set writes name through the chain. The prior value is recorded in the
// owning scope's old snapshot before listeners are notified, and every
// listener has run by the time Set returns.
func (s *Scope) Set(name string, value any) {
	owner := s.Owner(name)
	sig, ok := owner.signals[name]
	if !ok {
		sig = NewSignal(nil)
		owner.signals[name] = sig
	}
	owner.old[name] = sig.Value()
	sig.Set(value)
}

// Old returns the value name held before its most recent write.
func (s *Scope) Old(name string) any {
	return s.Owner(name).old[name]
}

// Names returns the names declared locally in this scope, sorted.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.signals))
	for name := range s.signals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns the current values of every name visible from this
// scope. Nearer scopes never hide farther ones because names are owned by
// their topmost declarer.
func (s *Scope) Snapshot() map[string]any {
	out := make(map[string]any)
	for sc := s; sc != nil; sc = sc.parent {
		for name, sig := range sc.signals {
			out[name] = sig.Value()
		}
	}
	return out
}
