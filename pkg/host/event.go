package host

// ListenOptions are the standard listener flags.
type ListenOptions struct {
	Capture bool
	Once    bool
	Passive bool
}

// Event is dispatched through the host tree.
type Event struct {
	Type     string
	Detail   any
	Bubbles  bool
	Composed bool

	// Target is the node the event was dispatched to.
	Target Node
	// CurrentTarget is the node whose listener is running.
	CurrentTarget Node
	// Passive is set by the host while a passive listener runs.
	Passive bool

	defaultPrevented bool
	stopped          bool
}

// NewEvent creates a bubbling, composed event.
func NewEvent(typ string, detail any) *Event {
	return &Event{Type: typ, Detail: detail, Bubbles: true, Composed: true}
}

// PreventDefault marks the event as canceled. It has no effect inside a
// passive listener.
func (e *Event) PreventDefault() {
	if e.Passive {
		return
	}
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault took effect.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// StopPropagation stops the event after the current node's listeners.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Stopped reports whether StopPropagation was called.
func (e *Event) Stopped() bool {
	return e.stopped
}
