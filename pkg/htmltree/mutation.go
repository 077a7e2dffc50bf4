package htmltree

import (
	"golang.org/x/net/html"

	"github.com/vango-dev/tendril/pkg/host"
)

type observer struct {
	root      *html.Node
	fn        func(host.MutationBatch)
	pending   host.MutationBatch
	scheduled bool
	closed    bool
}

// Observe reports child additions and removals below root. Batches are
// delivered through the document's poster.
func (d *Document) Observe(root host.Node, fn func(host.MutationBatch)) (disconnect func()) {
	r, ok := root.(*Node)
	if !ok || r == nil || fn == nil {
		return func() {}
	}
	o := &observer{root: r.n, fn: fn}
	d.observers = append(d.observers, o)
	return func() {
		if o.closed {
			return
		}
		o.closed = true
		o.pending = nil
		for i, other := range d.observers {
			if other == o {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				break
			}
		}
	}
}

func (o *observer) deliver() {
	o.scheduled = false
	batch := o.pending
	o.pending = nil
	if o.closed || len(batch) == 0 {
		return
	}
	o.fn(batch)
}

// record queues a mutation for every observer whose root contains target.
func (d *Document) record(target *html.Node, added, removed []*html.Node) {
	if len(added) == 0 && len(removed) == 0 {
		return
	}
	for _, o := range d.observers {
		if !contains(o.root, target) {
			continue
		}
		o.pending = append(o.pending, host.Mutation{
			Target:  d.wrap(target),
			Added:   d.wrapAll(added),
			Removed: d.wrapAll(removed),
		})
		if !o.scheduled {
			o.scheduled = true
			d.post(o.deliver)
		}
	}
}

// contains reports whether n is root or one of its descendants in the
// same tree.
func contains(root, n *html.Node) bool {
	for c := n; c != nil; c = c.Parent {
		if c == root {
			return true
		}
	}
	return false
}

// insertNodes detaches each node from its current parent and inserts it
// into parent before ref, recording a single addition.
func (d *Document) insertNodes(parent *html.Node, nodes []*html.Node, ref *html.Node) {
	if len(nodes) == 0 {
		return
	}
	for _, n := range nodes {
		if n.Parent != nil {
			d.removeChild(n.Parent, n)
		}
		parent.InsertBefore(n, ref)
	}
	d.record(parent, nodes, nil)
	if d.isConnected(parent) {
		for _, n := range nodes {
			d.connectReactions(n)
		}
	}
}

// removeChild detaches child from parent and records the removal.
func (d *Document) removeChild(parent, child *html.Node) {
	wasConnected := d.isConnected(parent)
	parent.RemoveChild(child)
	d.record(parent, nil, []*html.Node{child})
	if wasConnected {
		d.disconnectReactions(child)
	}
}

// replaceChildren removes every child of parent and appends nodes.
func (d *Document) replaceChildren(parent *html.Node, nodes []*html.Node) {
	connected := d.isConnected(parent)
	var removed []*html.Node
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		parent.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	for _, n := range nodes {
		if n.Parent != nil {
			d.removeChild(n.Parent, n)
		}
		parent.AppendChild(n)
	}
	d.record(parent, nodes, removed)
	if !connected {
		return
	}
	for _, n := range removed {
		d.disconnectReactions(n)
	}
	for _, n := range nodes {
		d.connectReactions(n)
	}
}
