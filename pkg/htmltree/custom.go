package htmltree

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/tendril/pkg/host"
)

// Define registers a custom element and upgrades connected instances.
func (d *Document) Define(tag string, def host.ElementDefinition) error {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if !strings.Contains(tag, "-") {
		return fmt.Errorf("htmltree: custom element name %q must contain a hyphen", tag)
	}
	if _, ok := d.defs[tag]; ok {
		return fmt.Errorf("htmltree: custom element %q is already defined", tag)
	}
	if def.Construct == nil {
		return fmt.Errorf("htmltree: custom element %q has no constructor", tag)
	}
	d.defs[tag] = def
	d.connectReactions(d.root)
	return nil
}

// Defined reports whether tag is registered.
func (d *Document) Defined(tag string) bool {
	_, ok := d.defs[strings.ToLower(tag)]
	return ok
}

func (d *Document) upgrade(w *Node) {
	if w.upgraded || w.n.Type != html.ElementNode {
		return
	}
	def, ok := d.defs[w.n.Data]
	if !ok {
		return
	}
	w.upgraded = true
	w.callbacks = def.Construct(w)
}

// connectReactions upgrades and connects every defined element in the
// subtree rooted at n, shadow trees included. Each element is connected at
// most once per transition.
func (d *Document) connectReactions(n *html.Node) {
	if n.Type == html.ElementNode {
		w := d.wrap(n)
		d.upgrade(w)
		if w.callbacks != nil && !w.connectedFired && d.isConnected(n) {
			w.connectedFired = true
			w.callbacks.Connected()
		}
		if w.shadow != nil {
			for c := w.shadow.n.FirstChild; c != nil; c = c.NextSibling {
				d.connectReactions(c)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.connectReactions(c)
	}
}

func (d *Document) disconnectReactions(n *html.Node) {
	if n.Type == html.ElementNode {
		if w, ok := d.nodes[n]; ok {
			if w.callbacks != nil && w.connectedFired {
				w.connectedFired = false
				w.callbacks.Disconnected()
			}
			if w.shadow != nil {
				for c := w.shadow.n.FirstChild; c != nil; c = c.NextSibling {
					d.disconnectReactions(c)
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.disconnectReactions(c)
	}
}

func (d *Document) attributeChanged(w *Node, name, oldValue, newValue string) {
	if w.callbacks == nil {
		return
	}
	def, ok := d.defs[w.n.Data]
	if !ok || !slices.Contains(def.ObservedAttributes, name) {
		return
	}
	w.callbacks.AttributeChanged(name, oldValue, newValue)
}
