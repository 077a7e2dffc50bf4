package tendril

import (
	"strings"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/pkg/event"
	"github.com/vango-dev/tendril/pkg/fetch"
	"github.com/vango-dev/tendril/pkg/host"
	"github.com/vango-dev/tendril/pkg/reactive"
	"github.com/vango-dev/tendril/pkg/script"
	"github.com/vango-dev/tendril/pkg/store"
)

// interpret wires the directives of one node. Declarations run before
// bindings so a node can read the variables it declares.
func (e *Engine) interpret(st *nodeState) {
	type pending struct {
		d     Directive
		value string
	}
	var later []pending
	for _, a := range st.node.Attributes() {
		d, err := Classify(a.Name)
		if err != nil {
			e.faultAt(err, st.node, a.Name, a.Value)
			continue
		}
		switch {
		case d.Kind == DirectiveNone:
		case d.declares():
			e.wire(st, d, a.Value)
		default:
			later = append(later, pending{d: d, value: a.Value})
		}
	}
	for _, p := range later {
		e.wire(st, p.d, p.value)
	}
}

func (e *Engine) wire(st *nodeState, d Directive, value string) {
	var err error
	switch d.Kind {
	case DirectiveLet:
		err = e.bindLet(st, d, value)
	case DirectiveJSVar:
		e.bindJSVar(st, value)
	case DirectiveAttr, DirectiveProp:
		err = e.bindTarget(st, d, value)
	case DirectiveEvent:
		err = e.bindEvent(st, d, value)
	case DirectiveInclude:
		err = e.include(st, value)
	case DirectiveComponent, DirectiveConnected, DirectiveDisconnected:
		// Only meaningful on component templates and their scripts.
	}
	if err != nil {
		e.faultAt(err, st.node, d.Attr, value)
	}
}

// env is the evaluation environment of st. Writes made by expressions
// are counted like engine writes.
type env struct {
	e *Engine
	*reactive.Scope
}

func (v env) Set(name string, value any) {
	v.e.write(v.Scope, name, value)
}

func (e *Engine) env(st *nodeState) env {
	return env{e: e, Scope: st.scope}
}

func (e *Engine) bindings(st *nodeState, ev *host.Event) script.Bindings {
	return script.Bindings{
		Old:   st.scope.Old,
		Node:  st.node,
		Host:  st.host,
		Event: ev,
	}
}

// subscribe runs fn on every emit of sig while st is alive and
// unsubscribes at teardown.
func (e *Engine) subscribe(st *nodeState, sig *reactive.Signal, fn func()) {
	unsubscribe := sig.Subscribe(func(any) {
		if st.alive {
			fn()
		}
	})
	st.onCleanup(unsubscribe)
}

// bindTarget wires an attribute or property binding. The expression is
// evaluated once through a tracker; the setter then re-runs on every
// change of a variable read during that first evaluation.
func (e *Engine) bindTarget(st *nodeState, d Directive, expr string) error {
	set := d.Target.Setter(st.node, e.rt.Stringify)
	tracker := reactive.Track(st.scope)
	v, err := e.rt.Value(expr, tracker, e.bindings(st, nil))
	if err != nil {
		return err
	}
	if err := set(v); err != nil {
		return tderrors.New(tderrors.ErrProperty).Wrap(err)
	}

	refresh := func() {
		v, err := e.rt.Value(expr, e.env(st), e.bindings(st, nil))
		if err == nil {
			err = set(v)
		}
		if err != nil {
			e.faultAt(err, st.node, d.Attr, expr)
		}
	}
	for _, sig := range tracker.Signals() {
		e.subscribe(st, sig, refresh)
	}
	e.metrics.AddBindings(1)
	st.onCleanup(func() { e.metrics.AddBindings(-1) })
	return nil
}

// bindLet declares a variable. Without dependencies the expression runs
// once; each listed dependency re-runs it on change. Persisted variables
// start from the stored value when there is one and write every change
// through.
func (e *Engine) bindLet(st *nodeState, d Directive, expr string) error {
	var backing store.Store
	codec := store.CodecFor(d.Store)
	if d.Store != "" {
		backing = e.stores.Get(d.Store)
		if backing == nil {
			return tderrors.New(tderrors.ErrStoreWrite).WithDetailf("No %s store is configured.", d.Store)
		}
	}

	initial, stored := any(nil), false
	if backing != nil {
		if raw, ok := backing.Get(d.Name); ok {
			initial, stored = codec.Decode(raw), true
		}
	}
	if !stored {
		v, err := e.rt.Value(expr, e.env(st), e.bindings(st, nil))
		if err != nil {
			return err
		}
		initial = v
	}
	e.write(st.scope, d.Name, initial)

	if backing != nil {
		persist := func(v any) error {
			raw, err := codec.Encode(e.rt.Export(v))
			if err == nil {
				err = backing.Set(d.Name, raw)
			}
			if err != nil {
				return tderrors.New(tderrors.ErrStoreWrite).WithDetailf("Writing %q to the %s store failed.", d.Name, d.Store).Wrap(err)
			}
			return nil
		}
		if !stored {
			if err := persist(initial); err != nil {
				return err
			}
		}
		sig := st.scope.Signal(d.Name)
		e.subscribe(st, sig, func() {
			if err := persist(sig.Value()); err != nil {
				e.faultAt(err, st.node, d.Attr, expr)
			}
		})
	}

	for _, dep := range d.Deps {
		e.subscribe(st, st.scope.Signal(dep), func() {
			v, err := e.rt.Value(expr, e.env(st), e.bindings(st, nil))
			if err != nil {
				e.faultAt(err, st.node, d.Attr, expr)
				return
			}
			e.write(st.scope, d.Name, v)
		})
	}
	return nil
}

func (e *Engine) bindJSVar(st *nodeState, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	scope := st.scope
	e.registry.Register(name, scope)
	st.onCleanup(func() { e.registry.Unregister(name, scope) })
}

// bindEvent attaches a listener. The value is evaluated per event; a
// function result is called with the event and the scope as this.
func (e *Engine) bindEvent(st *nodeState, d Directive, expr string) error {
	var h event.Handler
	if d.Event.Fetch {
		desc, err := fetch.ParseDescriptor(expr, d.Event.ParseMode)
		if err != nil {
			return err
		}
		h = func(ev *host.Event) {
			e.startFetch(st, d, desc, ev)
		}
	} else {
		h = func(ev *host.Event) {
			if _, err := e.rt.Handle(expr, e.env(st), e.bindings(st, ev), ev); err != nil {
				e.faultAt(err, st.node, d.Attr, expr)
			}
		}
	}
	name := d.Event.Event
	guarded := func(ev *host.Event) {
		if !st.alive {
			e.logger.Debug("dropped event for removed node", "event", name, "node", describe(st.node))
			return
		}
		e.metrics.RecordEvent(name)
		h(ev)
	}
	st.onCleanup(e.pipeline.Register(st.node, d.Event, guarded))
	return nil
}

// startFetch evaluates the request arguments now and routes the response
// on the loop once it arrives.
func (e *Engine) startFetch(st *nodeState, d Directive, desc fetch.Descriptor, ev *host.Event) {
	args, err := e.rt.Value(desc.Args, e.env(st), e.bindings(st, ev))
	if err != nil {
		e.faultAt(err, st.node, d.Attr, desc.Args)
		return
	}
	req, err := fetch.NewRequest(e.rt.Export(args))
	if err != nil {
		e.faultAt(err, st.node, d.Attr, desc.Args)
		return
	}
	ctx := e.ctx
	e.loop.Go(func() func() {
		resp, err := e.fetch.Do(ctx, req)
		return func() {
			if !st.alive {
				e.logger.Debug("dropped fetch for removed node", "url", req.URL, "node", describe(st.node))
				return
			}
			if err == nil {
				err = e.fetch.Route(resp, desc, e.env(st), e.doc)
			}
			if err != nil {
				e.faultAt(err, st.node, d.Attr, desc.Args)
			}
		}
	})
}

// include fetches the href of a head link and inserts it at the location
// named by the directive value.
func (e *Engine) include(st *nodeState, location string) error {
	href, ok := st.node.Attr("href")
	if !ok || href == "" {
		return tderrors.New(tderrors.ErrInclude).WithDetail("#include needs an href.")
	}
	selector, pos, err := fetch.ParseLocation(location)
	if err != nil {
		return err
	}
	req, err := fetch.NewRequest(href)
	if err != nil {
		return err
	}
	ctx := e.ctx
	e.loop.Go(func() func() {
		resp, err := e.fetch.Do(ctx, req)
		return func() {
			if !e.mounted {
				return
			}
			if err != nil {
				e.faultAt(err, st.node, "#include", location)
				return
			}
			if !resp.OK() {
				e.logger.Warn("include failed", "status", resp.Status, "reason", resp.StatusText, "url", req.URL)
				return
			}
			target := e.doc.Query(selector)
			if target == nil {
				e.faultAt(tderrors.New(tderrors.ErrTargetNotFound).WithDetailf("No node matches %q.", selector), st.node, "#include", location)
				return
			}
			if err := target.Insert(pos, string(resp.Body)); err != nil {
				e.faultAt(tderrors.New(tderrors.ErrInclude).Wrap(err), st.node, "#include", location)
			}
		}
	})
	return nil
}
