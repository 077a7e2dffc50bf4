package tendril

import (
	"strings"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/pkg/bind"
	"github.com/vango-dev/tendril/pkg/event"
	"github.com/vango-dev/tendril/pkg/store"
)

// DirectiveKind classifies an attribute.
type DirectiveKind uint8

const (
	DirectiveNone DirectiveKind = iota
	DirectiveEvent
	DirectiveAttr
	DirectiveProp
	DirectiveLet
	DirectiveJSVar
	DirectiveComponent
	DirectiveInclude
	DirectiveConnected
	DirectiveDisconnected
)

var directiveNames = [...]string{
	DirectiveNone:         "none",
	DirectiveEvent:        "event",
	DirectiveAttr:         "attr",
	DirectiveProp:         "prop",
	DirectiveLet:          "let",
	DirectiveJSVar:        "jsvar",
	DirectiveComponent:    "component",
	DirectiveInclude:      "include",
	DirectiveConnected:    "onconnected",
	DirectiveDisconnected: "ondisconnected",
}

// String returns the kind name.
func (k DirectiveKind) String() string {
	if int(k) < len(directiveNames) {
		return directiveNames[k]
	}
	return "unknown"
}

// Directive is a classified attribute.
type Directive struct {
	Kind DirectiveKind
	// Attr is the attribute name as written.
	Attr string

	// Name is the decoded variable of a #let.
	Name string
	// Store is the persistence of a #let, empty when not persisted.
	Store store.Kind
	// Deps are the decoded dependencies of a #let.
	Deps []string

	// Event is set for DirectiveEvent.
	Event event.Spec

	// Target is set for DirectiveAttr and DirectiveProp.
	Target bind.Target
}

// declares reports whether d runs in the first pass over a node.
func (d Directive) declares() bool {
	return d.Kind == DirectiveLet || d.Kind == DirectiveJSVar
}

// Classify parses an attribute name. Attributes that are not directives
// return DirectiveNone and no error.
func Classify(attr string) (Directive, error) {
	d := Directive{Attr: attr}
	switch {
	case strings.HasPrefix(attr, "@"):
		spec, err := event.Parse(attr[1:])
		if err != nil {
			return d, err
		}
		d.Kind = DirectiveEvent
		d.Event = spec

	case strings.HasPrefix(attr, "::"):
		t, err := bind.ParseTarget(attr[2:], true)
		if err != nil {
			return d, tderrors.New(tderrors.ErrProperty).Wrap(err)
		}
		d.Kind = DirectiveProp
		d.Target = t

	case strings.HasPrefix(attr, ":"):
		t, err := bind.ParseTarget(attr[1:], false)
		if err != nil {
			return d, tderrors.New(tderrors.ErrDirective).Wrap(err)
		}
		d.Kind = DirectiveAttr
		d.Target = t

	case strings.HasPrefix(attr, "#"):
		return classifyHash(d, strings.ToLower(attr[1:]))
	}
	return d, nil
}

func classifyHash(d Directive, name string) (Directive, error) {
	switch name {
	case "jsvar":
		d.Kind = DirectiveJSVar
		return d, nil
	case "component":
		d.Kind = DirectiveComponent
		return d, nil
	case "include":
		d.Kind = DirectiveInclude
		return d, nil
	case "onconnected":
		d.Kind = DirectiveConnected
		return d, nil
	case "ondisconnected":
		d.Kind = DirectiveDisconnected
		return d, nil
	}

	rest, ok := strings.CutPrefix(name, "let")
	if !ok {
		return d, tderrors.New(tderrors.ErrDirective).WithDetailf("Unknown directive %q.", d.Attr)
	}
	head, vars, ok := strings.Cut(rest, ":")
	if !ok {
		return d, tderrors.New(tderrors.ErrDirective).WithDetailf("%q has no variable name.", d.Attr)
	}
	if head != "" {
		kind, err := store.ParseKind(strings.TrimPrefix(head, "-"))
		if err != nil || !strings.HasPrefix(head, "-") {
			return d, tderrors.New(tderrors.ErrDirective).WithDetailf("Unknown #let store %q.", head)
		}
		d.Store = kind
	}

	parts := strings.Split(vars, "|")
	if parts[0] == "" {
		return d, tderrors.New(tderrors.ErrDirective).WithDetailf("%q has no variable name.", d.Attr)
	}
	d.Kind = DirectiveLet
	d.Name = bind.DecodeName(parts[0])
	for _, dep := range parts[1:] {
		if dep = strings.TrimSpace(dep); dep != "" {
			d.Deps = append(d.Deps, bind.DecodeName(dep))
		}
	}
	return d, nil
}
