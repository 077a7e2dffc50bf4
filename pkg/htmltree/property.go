package htmltree

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/vango-dev/tendril/pkg/host"
)

// Property reads a nested property. A handful of names are reflected onto
// the node's content and attributes; everything else lives in a property
// bag of nested maps. Single-segment reads fall back to the attribute of
// the same name.
func (x *Node) Property(path ...string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	switch path[0] {
	case "textContent", "innerText":
		return x.Text(), true
	case "innerHTML":
		return x.HTML(), true
	case "outerHTML":
		return x.OuterHTML(), true
	case "tagName":
		return strings.ToUpper(x.Tag()), true
	case "id":
		v, _ := x.Attr("id")
		return v, true
	case "className":
		v, _ := x.Attr("class")
		return v, true
	case "style":
		if len(path) == 2 {
			return styleValue(x.attrOrEmpty("style"), kebab(path[1])), true
		}
		if len(path) == 1 {
			return x.attrOrEmpty("style"), true
		}
		return nil, false
	case "dataset":
		if len(path) == 2 {
			return x.Attr("data-" + kebab(path[1]))
		}
		return nil, false
	}

	var cur any = x.props
	for i, seg := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			if i == 0 && len(path) == 1 {
				return x.Attr(seg)
			}
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// SetProperty assigns value at path, creating nested maps as needed.
func (x *Node) SetProperty(value any, path ...string) error {
	if len(path) == 0 {
		return fmt.Errorf("htmltree: empty property path")
	}
	switch path[0] {
	case "textContent", "innerText":
		x.SetText(toString(value))
		return nil
	case "innerHTML":
		return x.SetHTML(toString(value))
	case "outerHTML":
		return x.Insert(host.OuterHTML, toString(value))
	case "id":
		x.SetAttr("id", toString(value))
		return nil
	case "className":
		x.SetAttr("class", toString(value))
		return nil
	case "style":
		switch len(path) {
		case 1:
			x.SetAttr("style", toString(value))
		case 2:
			x.SetAttr("style", setStyle(x.attrOrEmpty("style"), kebab(path[1]), toString(value)))
		default:
			return fmt.Errorf("htmltree: invalid style path %v", path)
		}
		return nil
	case "dataset":
		if len(path) != 2 {
			return fmt.Errorf("htmltree: invalid dataset path %v", path)
		}
		x.SetAttr("data-"+kebab(path[1]), toString(value))
		return nil
	}

	if x.props == nil {
		x.props = make(map[string]any)
	}
	container := x.props
	for i, seg := range path[:len(path)-1] {
		next, ok := container[seg]
		if !ok || next == nil {
			m := make(map[string]any)
			container[seg] = m
			container = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("htmltree: property %s is not an object", strings.Join(path[:i+1], "."))
		}
		container = m
	}
	container[path[len(path)-1]] = value
	return nil
}

func (x *Node) attrOrEmpty(name string) string {
	v, _ := x.Attr(name)
	return v
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// kebab converts backgroundColor to background-color.
func kebab(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type declaration struct {
	name  string
	value string
}

func parseStyle(s string) []declaration {
	var out []declaration
	for _, part := range strings.Split(s, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, declaration{name: name, value: strings.TrimSpace(value)})
	}
	return out
}

func styleValue(style, name string) string {
	for _, d := range parseStyle(style) {
		if d.name == name {
			return d.value
		}
	}
	return ""
}

func setStyle(style, name, value string) string {
	decls := parseStyle(style)
	found := false
	for i := range decls {
		if decls[i].name == name {
			decls[i].value = value
			found = true
		}
	}
	if !found {
		decls = append(decls, declaration{name: name, value: value})
	}
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		if d.value == "" {
			continue
		}
		parts = append(parts, d.name+": "+d.value)
	}
	return strings.Join(parts, "; ")
}
