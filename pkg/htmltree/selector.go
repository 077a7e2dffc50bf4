package htmltree

import (
	"fmt"
	"strings"
)

// translateSelector turns a simple CSS selector into XPath. It handles tag,
// #id, .class and [attr] / [attr=value] compounds joined by descendant
// (space) or child (>) combinators. Input that already looks like XPath is
// returned unchanged.
func translateSelector(css string) string {
	css = strings.TrimSpace(css)
	if css == "" || css == "*" {
		return "//*"
	}
	if strings.HasPrefix(css, "/") || strings.HasPrefix(css, "./") || strings.HasPrefix(css, "(") {
		return css
	}

	var xpath strings.Builder
	axis := "//"
	for _, part := range tokenizeSelector(css) {
		if part == ">" {
			axis = "/"
			continue
		}
		xpath.WriteString(axis)
		xpath.WriteString(compound(part))
		axis = "//"
	}
	return xpath.String()
}

// relative anchors an absolute XPath at the context node.
func relative(xpath string) string {
	if strings.HasPrefix(xpath, "/") {
		return "." + xpath
	}
	return xpath
}

func tokenizeSelector(css string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	for _, r := range css {
		switch {
		case r == '[':
			depth++
			cur.WriteRune(r)
		case r == ']':
			depth--
			cur.WriteRune(r)
		case depth == 0 && r == '>':
			flush()
			parts = append(parts, ">")
		case depth == 0 && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return parts
}

func compound(token string) string {
	tag := "*"
	var predicates []string

	for len(token) > 0 {
		switch token[0] {
		case '#', '.':
			end := strings.IndexAny(token[1:], ".#[")
			if end == -1 {
				end = len(token)
			} else {
				end++
			}
			name := token[1:end]
			if token[0] == '#' {
				predicates = append(predicates, fmt.Sprintf("@id=%s", quote(name)))
			} else {
				predicates = append(predicates, fmt.Sprintf("contains(concat(' ', normalize-space(@class), ' '), %s)", quote(" "+name+" ")))
			}
			token = token[end:]
		case '[':
			end := strings.IndexByte(token, ']')
			if end == -1 {
				end = len(token) - 1
			}
			predicates = append(predicates, attributePredicate(token[1:end]))
			token = token[end+1:]
		default:
			end := strings.IndexAny(token, ".#[")
			if end == -1 {
				end = len(token)
			}
			tag = strings.ToLower(token[:end])
			token = token[end:]
		}
	}

	var b strings.Builder
	b.WriteString(tag)
	for _, p := range predicates {
		b.WriteString("[" + p + "]")
	}
	return b.String()
}

func attributePredicate(expr string) string {
	name, value, ok := strings.Cut(expr, "=")
	name = strings.TrimSpace(name)
	if !ok {
		return "@" + name
	}
	value = strings.Trim(strings.TrimSpace(value), `"'`)
	return fmt.Sprintf("@%s=%s", name, quote(value))
}

func quote(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}
