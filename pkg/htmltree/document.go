package htmltree

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/tendril/pkg/host"
)

// Option configures a Document.
type Option func(*Document)

// WithPoster sets the function used to deliver mutation batches
// asynchronously. A loop's Post method is the usual choice.
func WithPoster(post func(func())) Option {
	return func(d *Document) {
		d.post = post
	}
}

// Document is a parsed HTML document.
type Document struct {
	root      *html.Node
	nodes     map[*html.Node]*Node
	observers []*observer
	defs      map[string]host.ElementDefinition
	post      func(func())
	queue     []func()
}

var _ host.Document = (*Document)(nil)

// Parse reads a full HTML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmltree: parse: %w", err)
	}
	d := &Document{
		root:  root,
		nodes: make(map[*html.Node]*Node),
		defs:  make(map[string]host.ElementDefinition),
	}
	d.post = d.enqueue
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ParseString parses markup held in a string.
func ParseString(markup string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(markup), opts...)
}

// MustParse is like ParseString but panics on error.
func MustParse(markup string, opts ...Option) *Document {
	d, err := ParseString(markup, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Root returns the document node.
func (d *Document) Root() host.Node {
	return d.wrap(d.root)
}

// Head returns the head element.
func (d *Document) Head() host.Node {
	return d.Query("head")
}

// Body returns the body element.
func (d *Document) Body() host.Node {
	return d.Query("body")
}

// Query returns the first element matching selector, or nil.
func (d *Document) Query(selector string) host.Node {
	return d.query(d.root, selector)
}

func (d *Document) query(top *html.Node, selector string) host.Node {
	n, err := htmlquery.Query(top, relative(translateSelector(selector)))
	if err != nil || n == nil {
		return nil
	}
	return d.wrap(n)
}

// Clone copies n. Deep clones include every descendant.
func (d *Document) Clone(n host.Node, deep bool) host.Node {
	src, ok := n.(*Node)
	if !ok || src == nil {
		return nil
	}
	return d.wrap(cloneHTMLNode(src.n, deep))
}

// Node returns the wrapper for a raw html node.
func (d *Document) Node(n *html.Node) host.Node {
	if n == nil {
		return nil
	}
	return d.wrap(n)
}

// Render serializes the document. Shadow roots are written as
// <template shadowrootmode="open"> children of their hosts.
func (d *Document) Render() string {
	var b strings.Builder
	_ = html.Render(&b, d.renderCopy(d.root))
	return b.String()
}

// RenderNode serializes a single node the same way Render does.
func (d *Document) RenderNode(n host.Node) string {
	src, ok := n.(*Node)
	if !ok || src == nil {
		return ""
	}
	var b strings.Builder
	_ = html.Render(&b, d.renderCopy(src.n))
	return b.String()
}

func (d *Document) renderCopy(n *html.Node) *html.Node {
	c := cloneHTMLNode(n, false)
	if w, ok := d.nodes[n]; ok && w.shadow != nil {
		tpl := &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Template,
			Data:     "template",
			Attr:     []html.Attribute{{Key: "shadowrootmode", Val: "open"}},
		}
		for sc := w.shadow.n.FirstChild; sc != nil; sc = sc.NextSibling {
			tpl.AppendChild(d.renderCopy(sc))
		}
		c.AppendChild(tpl)
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(d.renderCopy(ch))
	}
	return c
}

// FlushMutations delivers batches queued by the default poster and
// returns how many deliveries ran.
func (d *Document) FlushMutations() int {
	count := 0
	for len(d.queue) > 0 {
		q := d.queue
		d.queue = nil
		for _, fn := range q {
			fn()
			count++
		}
	}
	return count
}

func (d *Document) enqueue(fn func()) {
	d.queue = append(d.queue, fn)
}

func (d *Document) wrap(n *html.Node) *Node {
	if w, ok := d.nodes[n]; ok {
		return w
	}
	w := &Node{doc: d, n: n}
	d.nodes[n] = w
	return w
}

func (d *Document) wrapAll(ns []*html.Node) []host.Node {
	out := make([]host.Node, 0, len(ns))
	for _, n := range ns {
		out = append(out, d.wrap(n))
	}
	return out
}

// isConnected reports whether n is reachable from the document root,
// possibly through shadow hosts.
func (d *Document) isConnected(n *html.Node) bool {
	top := n
	for top.Parent != nil {
		top = top.Parent
	}
	if top == d.root {
		return true
	}
	if w, ok := d.nodes[top]; ok && w.host != nil {
		return d.isConnected(w.host.n)
	}
	return false
}

func cloneHTMLNode(n *html.Node, deep bool) *html.Node {
	if n == nil {
		return nil
	}
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      make([]html.Attribute, len(n.Attr)),
	}
	copy(clone.Attr, n.Attr)

	if deep {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			clone.AppendChild(cloneHTMLNode(c, true))
		}
	}
	return clone
}
