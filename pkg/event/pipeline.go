package event

import (
	"time"

	"github.com/vango-dev/tendril/pkg/host"
	"github.com/vango-dev/tendril/pkg/loop"
)

// Handler receives events after modifiers have been applied.
type Handler func(ev *host.Event)

// Pipeline attaches directive listeners to nodes.
type Pipeline struct {
	clock loop.Clock
}

// NewPipeline creates a pipeline scheduling delays and throttles on clock.
func NewPipeline(clock loop.Clock) *Pipeline {
	return &Pipeline{clock: clock}
}

// Register attaches h to node for spec.Event. Throttling runs before the
// delay, so a throttled delivery is then deferred. The returned cleanup
// removes the listener and cancels a pending throttle tick; delayed calls
// already scheduled are left to run.
func (p *Pipeline) Register(node host.Node, spec Spec, h Handler) (cleanup func()) {
	handler := h
	if spec.Delay > 0 {
		handler = p.Delay(spec.Delay, handler)
	}
	stop := func() {}
	if spec.Throttle > 0 {
		handler, stop = p.Throttle(spec.Throttle, handler)
	}
	remove := node.Listen(spec.Event, func(ev *host.Event) { handler(ev) }, spec.ListenOptions())
	return func() {
		remove()
		stop()
	}
}

// Delay defers every call to h by d.
func (p *Pipeline) Delay(d time.Duration, h Handler) Handler {
	return func(ev *host.Event) {
		p.clock.AfterFunc(d, func() { h(ev) })
	}
}

// Throttle coalesces events: each event overwrites a single pending slot,
// the first event of an interval arms a timer, and when it fires the
// pending event is delivered and the slot cleared. At most one event is
// delivered per interval, always the most recent. stop cancels the timer
// and drops the pending event.
func (p *Pipeline) Throttle(interval time.Duration, h Handler) (throttled Handler, stop func()) {
	var (
		pending *host.Event
		timer   loop.Timer
		stopped bool
	)
	flush := func() {
		timer = nil
		ev := pending
		pending = nil
		if ev != nil && !stopped {
			h(ev)
		}
	}
	throttled = func(ev *host.Event) {
		if stopped {
			return
		}
		pending = ev
		if timer == nil {
			timer = p.clock.AfterFunc(interval, flush)
		}
	}
	stop = func() {
		stopped = true
		pending = nil
		if timer != nil {
			timer.Stop()
			timer = nil
		}
	}
	return throttled, stop
}
