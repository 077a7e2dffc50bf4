package htmltree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/tendril/pkg/host"
)

// ErrDetached is returned when an operation needs a parent the node lacks.
var ErrDetached = errors.New("htmltree: node has no parent")

// Node wraps a *html.Node. The document keeps one wrapper per node.
type Node struct {
	doc       *Document
	n         *html.Node
	props     map[string]any
	listeners []*listener
	shadow    *Node
	host      *Node

	callbacks      host.ElementCallbacks
	upgraded       bool
	connectedFired bool
}

var _ host.Node = (*Node)(nil)

// HTMLNode returns the underlying html node.
func (x *Node) HTMLNode() *html.Node {
	return x.n
}

// Kind reports what the node is.
func (x *Node) Kind() host.NodeKind {
	switch x.n.Type {
	case html.ElementNode:
		return host.KindElement
	case html.TextNode:
		return host.KindText
	case html.CommentNode:
		return host.KindComment
	case html.DocumentNode:
		if x.host != nil {
			return host.KindShadowRoot
		}
		return host.KindDocument
	default:
		return host.KindOther
	}
}

// Tag returns the lowercase element name.
func (x *Node) Tag() string {
	if x.n.Type != html.ElementNode {
		return ""
	}
	return x.n.Data
}

func (x *Node) Parent() host.Node {
	return x.doc.Node(x.n.Parent)
}

func (x *Node) Children() []host.Node {
	var out []host.Node
	for c := x.n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, x.doc.wrap(c))
	}
	return out
}

func (x *Node) Connected() bool {
	return x.doc.isConnected(x.n)
}

func (x *Node) Host() host.Node {
	if x.host == nil {
		return nil
	}
	return x.host
}

func (x *Node) Shadow() host.Node {
	if x.shadow == nil {
		return nil
	}
	return x.shadow
}

// AttachShadow creates an open shadow root for an element.
func (x *Node) AttachShadow() host.Node {
	if x.shadow != nil {
		return x.shadow
	}
	root := x.doc.wrap(&html.Node{Type: html.DocumentNode})
	root.host = x
	x.shadow = root
	return root
}

// --- Attributes ---

func (x *Node) Attributes() []host.Attribute {
	out := make([]host.Attribute, 0, len(x.n.Attr))
	for _, a := range x.n.Attr {
		out = append(out, host.Attribute{Name: attrName(a), Value: a.Val})
	}
	return out
}

func (x *Node) Attr(name string) (string, bool) {
	for _, a := range x.n.Attr {
		if attrName(a) == name {
			return a.Val, true
		}
	}
	return "", false
}

func (x *Node) SetAttr(name, value string) {
	if x.n.Type != html.ElementNode {
		return
	}
	old, _ := x.Attr(name)
	found := false
	for i, a := range x.n.Attr {
		if attrName(a) == name {
			x.n.Attr[i].Val = value
			found = true
			break
		}
	}
	if !found {
		x.n.Attr = append(x.n.Attr, html.Attribute{Key: name, Val: value})
	}
	x.doc.attributeChanged(x, name, old, value)
}

func (x *Node) RemoveAttr(name string) {
	for i, a := range x.n.Attr {
		if attrName(a) == name {
			x.n.Attr = append(x.n.Attr[:i], x.n.Attr[i+1:]...)
			x.doc.attributeChanged(x, name, a.Val, "")
			return
		}
	}
}

func attrName(a html.Attribute) string {
	if a.Namespace != "" {
		return a.Namespace + ":" + a.Key
	}
	return a.Key
}

// --- Content ---

func (x *Node) Text() string {
	return htmlquery.InnerText(x.n)
}

func (x *Node) SetText(text string) {
	var nodes []*html.Node
	if text != "" {
		nodes = append(nodes, &html.Node{Type: html.TextNode, Data: text})
	}
	x.doc.replaceChildren(x.n, nodes)
}

func (x *Node) HTML() string {
	return htmlquery.OutputHTML(x.n, false)
}

func (x *Node) SetHTML(markup string) error {
	nodes, err := x.parseFragment(x.n, markup)
	if err != nil {
		return err
	}
	x.doc.replaceChildren(x.n, nodes)
	return nil
}

func (x *Node) OuterHTML() string {
	return htmlquery.OutputHTML(x.n, true)
}

// Insert parses markup and places it relative to the node.
func (x *Node) Insert(pos host.Position, markup string) error {
	switch pos {
	case host.Replace:
		return x.SetHTML(markup)
	case host.TextContent:
		x.SetText(markup)
		return nil
	case host.AfterBegin, host.BeforeEnd:
		nodes, err := x.parseFragment(x.n, markup)
		if err != nil {
			return err
		}
		ref := (*html.Node)(nil)
		if pos == host.AfterBegin {
			ref = x.n.FirstChild
		}
		x.doc.insertNodes(x.n, nodes, ref)
		return nil
	case host.BeforeBegin, host.AfterEnd, host.OuterHTML:
		parent := x.n.Parent
		if parent == nil {
			return ErrDetached
		}
		nodes, err := x.parseFragment(parent, markup)
		if err != nil {
			return err
		}
		switch pos {
		case host.BeforeBegin:
			x.doc.insertNodes(parent, nodes, x.n)
		case host.AfterEnd:
			x.doc.insertNodes(parent, nodes, x.n.NextSibling)
		default:
			x.doc.insertNodes(parent, nodes, x.n)
			x.doc.removeChild(parent, x.n)
		}
		return nil
	default:
		return fmt.Errorf("htmltree: unsupported position %v", pos)
	}
}

func (x *Node) parseFragment(context *html.Node, markup string) ([]*html.Node, error) {
	if context.Type != html.ElementNode || context.DataAtom == atom.Template {
		context = &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("htmltree: parse fragment: %w", err)
	}
	return nodes, nil
}

// --- Structure ---

func (x *Node) Query(selector string) host.Node {
	return x.doc.query(x.n, selector)
}

// Append moves child to the end of this node's children.
func (x *Node) Append(child host.Node) error {
	c, ok := child.(*Node)
	if !ok || c == nil || c.doc != x.doc {
		return fmt.Errorf("htmltree: cannot append foreign node %T", child)
	}
	x.doc.insertNodes(x.n, []*html.Node{c.n}, nil)
	return nil
}

// Remove detaches the node from its parent.
func (x *Node) Remove() {
	if x.n.Parent == nil {
		return
	}
	x.doc.removeChild(x.n.Parent, x.n)
}

func (x *Node) String() string {
	switch x.n.Type {
	case html.ElementNode:
		return "<" + x.n.Data + ">"
	case html.TextNode:
		return fmt.Sprintf("#text %q", x.n.Data)
	default:
		return "#" + x.Kind().String()
	}
}
