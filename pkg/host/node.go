package host

// NodeKind identifies what a Node represents.
type NodeKind uint8

const (
	KindOther NodeKind = iota
	KindElement
	KindText
	KindComment
	KindDocument
	KindShadowRoot
)

// String returns the kind name.
func (k NodeKind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindComment:
		return "comment"
	case KindDocument:
		return "document"
	case KindShadowRoot:
		return "shadow-root"
	default:
		return "other"
	}
}

// Attribute is a single name/value pair on an element.
type Attribute struct {
	Name  string
	Value string
}

// Content is the text and markup surface of a node.
type Content interface {
	// Text returns the concatenated text of the node and its descendants.
	Text() string

	// SetText replaces every child with a single text node.
	SetText(text string)

	// HTML returns the serialized markup of the node's children.
	HTML() string

	// SetHTML replaces the node's children with the parsed markup.
	SetHTML(markup string) error

	// OuterHTML returns the serialized markup of the node itself.
	OuterHTML() string

	// Insert parses markup and places it relative to the node.
	Insert(pos Position, markup string) error
}

// Properties is the nested property surface of an element.
type Properties interface {
	// Property reads the value at path. The boolean is false when any
	// segment along the path is missing.
	Property(path ...string) (any, bool)

	// SetProperty assigns value at path, creating intermediate
	// containers when they are missing.
	SetProperty(value any, path ...string) error
}

// EventTarget receives listeners and dispatches events.
type EventTarget interface {
	// Listen attaches fn for events of the given type and returns the
	// function that detaches it.
	Listen(event string, fn func(*Event), opts ListenOptions) (remove func())

	// Dispatch sends ev to the node. It returns false when a listener
	// called PreventDefault.
	Dispatch(ev *Event) bool
}

// Node is a single node of the host tree.
//
// Implementations return the same Node value for the same underlying
// node, so Nodes can be used as map keys.
type Node interface {
	Content
	Properties
	EventTarget

	Kind() NodeKind

	// Tag returns the lowercase tag name of an element, or "" otherwise.
	Tag() string

	// Parent returns the parent node. Shadow roots and detached roots
	// return nil.
	Parent() Node

	// Children returns the child nodes in order.
	Children() []Node

	// Connected reports whether the node is attached to a document,
	// directly or through the hosts of enclosing shadow roots.
	Connected() bool

	Attributes() []Attribute
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)

	// Query returns the first descendant matching a CSS selector.
	Query(selector string) Node

	// Append moves child to the end of this node's children.
	Append(child Node) error

	// Remove detaches the node from its parent.
	Remove()

	// AttachShadow creates the node's shadow root, or returns the
	// existing one.
	AttachShadow() Node

	// Shadow returns the attached shadow root, or nil.
	Shadow() Node

	// Host returns the element a shadow root is attached to. Other
	// nodes return nil.
	Host() Node
}
