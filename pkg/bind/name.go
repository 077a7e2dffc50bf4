// Package bind turns binding target names into setters on host nodes.
package bind

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DecodeName applies the hyphen-to-capital rule: every "-x" becomes "X",
// and "--" is an escape for a literal "-" whose following character is
// left as is. A trailing hyphen is kept.
//
//	background-color  backgroundColor
//	--a               -a
//	a--b              a-b
func DecodeName(name string) string {
	if !strings.Contains(name, "-") {
		return name
	}
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); {
		c := name[i]
		if c != '-' || i+1 >= len(name) {
			b.WriteByte(c)
			i++
			continue
		}
		if name[i+1] == '-' {
			b.WriteByte('-')
			i += 2
			continue
		}
		r, size := utf8.DecodeRuneInString(name[i+1:])
		b.WriteRune(unicode.ToUpper(r))
		i += 1 + size
	}
	return b.String()
}
