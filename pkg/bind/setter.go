package bind

import (
	"fmt"
	"strings"

	"github.com/vango-dev/tendril/pkg/host"
)

// Text and HTML are the canonical aliases for a node's content surfaces.
const (
	Text = "text"
	HTML = "html"
)

// Target is a parsed binding target.
type Target struct {
	// Name is the target as written, without the append suffix.
	Name string
	// Path is the decoded property path. Attribute targets have a single
	// segment holding the attribute name.
	Path []string
	// Property is true for property paths and content aliases.
	Property bool
	// Append concatenates instead of replacing.
	Append bool
}

// ParseTarget parses an attribute name ("title", "data-id+") or, when
// property is true, a property path ("style.background-color",
// "value", "html+"). Property segments are decoded with DecodeName;
// attribute names are kept verbatim because host attributes are
// case-insensitive.
func ParseTarget(name string, property bool) (Target, error) {
	t := Target{Property: property}
	if strings.HasSuffix(name, "+") {
		t.Append = true
		name = strings.TrimSuffix(name, "+")
	}
	t.Name = name
	if name == "" {
		return t, fmt.Errorf("bind: empty target")
	}

	switch name {
	case Text:
		t.Property = true
		t.Path = []string{"textContent"}
		return t, nil
	case HTML:
		t.Property = true
		t.Path = []string{"innerHTML"}
		return t, nil
	}

	if !property {
		t.Path = []string{name}
		return t, nil
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			return t, fmt.Errorf("bind: empty segment in property path %q", name)
		}
		t.Path = append(t.Path, DecodeName(seg))
	}
	return t, nil
}

// String returns the target in directive form.
func (t Target) String() string {
	s := strings.Join(t.Path, ".")
	if t.Append {
		s += "+"
	}
	return s
}

// Setter writes a resolved value into a node.
type Setter func(value any) error

// Stringify converts a value to the text written into attributes and
// content surfaces.
type Stringify func(v any) string

// Setter returns the function that writes values into node.
func (t Target) Setter(node host.Node, str Stringify) Setter {
	if str == nil {
		str = defaultStringify
	}
	if !t.Property {
		name := t.Path[0]
		return func(value any) error {
			next := str(value)
			if t.Append {
				cur, _ := node.Attr(name)
				next = cur + next
			}
			node.SetAttr(name, next)
			return nil
		}
	}
	return func(value any) error {
		if t.Append {
			cur, _ := node.Property(t.Path...)
			return node.SetProperty(str(cur)+str(value), t.Path...)
		}
		if isStringSurface(t.Path) {
			return node.SetProperty(str(value), t.Path...)
		}
		return node.SetProperty(value, t.Path...)
	}
}

func isStringSurface(path []string) bool {
	switch path[0] {
	case "textContent", "innerHTML", "outerHTML", "className", "id", "style", "dataset":
		return true
	}
	return false
}

func defaultStringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}
