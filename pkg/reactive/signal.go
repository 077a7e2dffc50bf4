package reactive

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Listener receives the current value of a Signal after every write.
type Listener func(value any)

// subscription is a single listener attached to a Signal.
// Pointer identity makes two subscriptions of the same func distinct.
type subscription struct {
	id uint64
	fn Listener
}

// Signal is a reactive cell holding a value and a set of listeners.
//
// Every write emits, even when the new value equals the old one. Listener
// order is not guaranteed. A Signal is not safe for concurrent use; all
// access happens on the owning loop.
type Signal struct {
	id    uint64
	value any
	subs  mapset.Set[*subscription]
}

// NewSignal creates a signal holding the initial value.
func NewSignal(initial any) *Signal {
	return &Signal{
		id:    nextID(),
		value: initial,
		subs:  mapset.NewThreadUnsafeSet[*subscription](),
	}
}

// ID returns the signal's unique identifier.
func (s *Signal) ID() uint64 {
	return s.id
}

// Value returns the current value without notifying anyone.
func (s *Signal) Value() any {
	return s.value
}

// Set stores a new value, emits it and returns the previous value.
func (s *Signal) Set(value any) (old any) {
	old = s.value
	s.value = value
	s.Emit()
	return old
}

// Emit calls every current listener with the current value, synchronously.
// Listeners removed by an earlier listener during the same emit are skipped.
func (s *Signal) Emit() {
	// Copy-before-notify so listeners may subscribe or unsubscribe freely.
	subs := s.subs.ToSlice()
	for _, sub := range subs {
		if !s.subs.Contains(sub) {
			continue
		}
		sub.fn(s.value)
	}
}

// Subscribe adds a listener and returns the function that removes it.
// The returned unsubscribe is idempotent.
func (s *Signal) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	sub := &subscription{id: nextID(), fn: fn}
	s.subs.Add(sub)
	return func() {
		s.subs.Remove(sub)
	}
}

// Listeners reports how many listeners are currently attached.
func (s *Signal) Listeners() int {
	return s.subs.Cardinality()
}
