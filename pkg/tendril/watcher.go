package tendril

import (
	"github.com/vango-dev/tendril/pkg/host"
	"github.com/vango-dev/tendril/pkg/reactive"
)

// onMutations handles one batch: every removal is torn down first, then
// every addition that is still connected is set up. A node removed and
// re-added in the same batch ends up wired exactly once.
func (e *Engine) onMutations(batch host.MutationBatch) {
	if !e.mounted {
		return
	}
	for _, m := range batch {
		for _, n := range m.Removed {
			e.teardown(n)
		}
	}
	for _, m := range batch {
		for _, n := range m.Added {
			if n.Connected() && !inert(n) {
				e.setup(n)
			}
		}
	}
}

// setup wires n and its descendants. Nodes that already have a state are
// skipped, so setup is idempotent.
func (e *Engine) setup(n host.Node) {
	if n.Kind() != host.KindElement {
		return
	}
	if _, ok := e.templates[n]; ok {
		return
	}
	if n.Tag() == "template" {
		if tag, ok := n.Attr("#component"); ok {
			e.defineComponent(n, tag)
		}
		return
	}

	if _, ok := e.states[n]; !ok {
		parent, owner := e.parentState(n)
		st := newNodeState(n, reactive.NewScope(parent.scope), owner)
		e.states[n] = st
		e.interpret(st)
	}
	for _, c := range n.Children() {
		e.setup(c)
	}
}

// teardown releases n and its descendants, innermost first.
func (e *Engine) teardown(n host.Node) {
	for _, c := range n.Children() {
		e.teardown(c)
	}
	if name, ok := e.templates[n]; ok && !n.Connected() {
		delete(e.templates, n)
		e.logger.Debug("component template removed", "tag", name)
	}
	st, ok := e.states[n]
	if !ok {
		return
	}
	delete(e.states, n)
	st.dispose()
}

// parentState returns the state of the nearest wired ancestor. A shadow
// root's state belongs to its component. Nodes outside any wired tree
// hang off the document scope.
func (e *Engine) parentState(n host.Node) (*nodeState, host.Node) {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if st, ok := e.states[p]; ok {
			return st, st.host
		}
	}
	return e.states[e.doc.Root()], nil
}

// inert reports whether n sits inside a template.
func inert(n host.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == host.KindElement && p.Tag() == "template" {
			return true
		}
	}
	return false
}
