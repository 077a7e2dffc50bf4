// Package fetch implements fetch directives.
//
// A fetch directive is an event directive with the fetch modifier whose
// value is
//
//	<args> -> <target> [-> <subtarget>]
//
// The args expression yields a URL or a [url, options] pair. On a 2xx
// response the body is routed by target: "this" writes every key of a
// JSON object into the scope, "console" logs it, the name of an existing
// variable receives it, and anything else is a selector whose first match
// gets the body inserted at subtarget (innerHTML replace by default).
// Non-2xx responses are logged and change nothing.
package fetch

import (
	"strings"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/pkg/host"
)

const arrow = "->"

// Reserved targets.
const (
	TargetThis    = "this"
	TargetConsole = "console"
)

// TargetKind is how a descriptor's target is resolved.
type TargetKind uint8

const (
	KindThis TargetKind = iota
	KindConsole
	KindVariable
	KindSelector
)

// String returns the kind name.
func (k TargetKind) String() string {
	switch k {
	case KindThis:
		return "this"
	case KindConsole:
		return "console"
	case KindVariable:
		return "variable"
	default:
		return "selector"
	}
}

// Descriptor is a parsed fetch directive.
type Descriptor struct {
	Args      string
	Target    string
	Subtarget host.Position
	// HasSubtarget is false when the default replace applies.
	HasSubtarget bool
	Mode         ParseMode
}

// ParseDescriptor parses a fetch directive value.
func ParseDescriptor(expr string, mode ParseMode) (Descriptor, error) {
	parts := strings.Split(expr, arrow)
	if len(parts) < 2 {
		return Descriptor{}, tderrors.New(tderrors.ErrFetchDirective).WithDetailf("%q has no %q target.", expr, arrow)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	d := Descriptor{Mode: mode, Subtarget: host.Replace}
	if d.Mode == "" {
		d.Mode = Text
	}
	if len(parts) >= 3 {
		last := parts[len(parts)-1]
		pos, err := host.ParsePosition(last)
		if err != nil {
			return Descriptor{}, tderrors.New(tderrors.ErrPosition).WithDetailf("%q in %q is not an insertion position.", last, expr).Wrap(err)
		}
		d.Subtarget = pos
		d.HasSubtarget = true
		parts = parts[:len(parts)-1]
	}
	d.Target = parts[len(parts)-1]
	d.Args = strings.Join(parts[:len(parts)-1], " "+arrow+" ")

	if d.Args == "" {
		return Descriptor{}, tderrors.New(tderrors.ErrFetchDirective).WithDetailf("%q has no fetch arguments.", expr)
	}
	if d.Target == "" {
		return Descriptor{}, tderrors.New(tderrors.ErrFetchDirective).WithDetailf("%q has an empty target.", expr)
	}
	return d, nil
}

// Kind resolves the target. exists reports whether a name is a variable in
// the triggering scope at the time the response arrives.
func (d Descriptor) Kind(exists func(name string) bool) TargetKind {
	switch d.Target {
	case TargetThis:
		return KindThis
	case TargetConsole:
		return KindConsole
	}
	if exists != nil && exists(d.Target) {
		return KindVariable
	}
	return KindSelector
}

// ParseLocation parses an include target "selector [-> subtarget]". An
// empty value targets the end of the body.
func ParseLocation(value string) (selector string, pos host.Position, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "body", host.BeforeEnd, nil
	}
	sel, sub, ok := strings.Cut(value, arrow)
	selector = strings.TrimSpace(sel)
	if selector == "" {
		selector = "body"
	}
	if !ok {
		return selector, host.BeforeEnd, nil
	}
	pos, err = host.ParsePosition(sub)
	if err != nil {
		return "", 0, tderrors.New(tderrors.ErrPosition).Wrap(err)
	}
	return selector, pos, nil
}
