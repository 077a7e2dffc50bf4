package htmltree

import (
	"golang.org/x/net/html"

	"github.com/vango-dev/tendril/pkg/host"
)

type listener struct {
	typ     string
	fn      func(*host.Event)
	opts    host.ListenOptions
	removed bool
}

type phase uint8

const (
	phaseCapture phase = iota
	phaseTarget
	phaseBubble
)

// Listen attaches fn for events of the given type.
func (x *Node) Listen(event string, fn func(*host.Event), opts host.ListenOptions) (remove func()) {
	l := &listener{typ: event, fn: fn, opts: opts}
	x.listeners = append(x.listeners, l)
	return func() {
		x.removeListener(l)
	}
}

func (x *Node) removeListener(l *listener) {
	if l.removed {
		return
	}
	l.removed = true
	for i, other := range x.listeners {
		if other == l {
			x.listeners = append(x.listeners[:i], x.listeners[i+1:]...)
			return
		}
	}
}

// Listeners reports how many listeners are attached for event.
func (x *Node) Listeners(event string) int {
	count := 0
	for _, l := range x.listeners {
		if l.typ == event {
			count++
		}
	}
	return count
}

// Dispatch runs the capture, target and bubble phases for ev. It returns
// false when a non-passive listener called PreventDefault.
func (x *Node) Dispatch(ev *host.Event) bool {
	ev.Target = x
	path := x.eventPath(ev.Composed)

	for i := len(path) - 1; i > 0 && !ev.Stopped(); i-- {
		path[i].invoke(ev, phaseCapture)
	}
	if !ev.Stopped() {
		path[0].invoke(ev, phaseTarget)
	}
	if ev.Bubbles {
		for i := 1; i < len(path) && !ev.Stopped(); i++ {
			path[i].invoke(ev, phaseBubble)
		}
	}
	ev.CurrentTarget = nil
	return !ev.DefaultPrevented()
}

// eventPath lists the node and its ancestors, crossing into shadow hosts
// for composed events.
func (x *Node) eventPath(composed bool) []*Node {
	var path []*Node
	for n := x.n; n != nil; {
		w := x.doc.wrap(n)
		path = append(path, w)
		if n.Parent != nil {
			n = n.Parent
			continue
		}
		if composed && w.host != nil && n.Type == html.DocumentNode {
			n = w.host.n
			continue
		}
		n = nil
	}
	return path
}

func (x *Node) invoke(ev *host.Event, p phase) {
	snapshot := make([]*listener, len(x.listeners))
	copy(snapshot, x.listeners)
	for _, l := range snapshot {
		if l.removed || l.typ != ev.Type {
			continue
		}
		if p == phaseCapture && !l.opts.Capture {
			continue
		}
		if p == phaseBubble && l.opts.Capture {
			continue
		}
		if l.opts.Once {
			x.removeListener(l)
		}
		ev.CurrentTarget = x
		ev.Passive = l.opts.Passive
		l.fn(ev)
		ev.Passive = false
	}
}
