package host

import (
	"fmt"
	"strings"
)

// Position says where inserted content lands relative to a node.
type Position uint8

const (
	// Replace swaps the node's children for the content.
	Replace Position = iota
	BeforeBegin
	AfterBegin
	BeforeEnd
	AfterEnd
	// TextContent replaces the children with the content as plain text.
	TextContent
	// OuterHTML replaces the node itself.
	OuterHTML
)

var positionNames = map[Position]string{
	Replace:     "innerHTML",
	BeforeBegin: "beforeBegin",
	AfterBegin:  "afterBegin",
	BeforeEnd:   "beforeEnd",
	AfterEnd:    "afterEnd",
	TextContent: "textContent",
	OuterHTML:   "outerHTML",
}

// String returns the canonical camel-case name.
func (p Position) String() string {
	if name, ok := positionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Position(%d)", p)
}

// ParsePosition looks a position up by name, ignoring case.
func ParsePosition(name string) (Position, error) {
	name = strings.TrimSpace(name)
	for p, n := range positionNames {
		if strings.EqualFold(n, name) {
			return p, nil
		}
	}
	return Replace, fmt.Errorf("unknown insertion position %q", name)
}
