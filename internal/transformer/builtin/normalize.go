package builtin

import (
	"strings"

	"csv2json/pkg/records"
)

// nbsp maps the non-breaking space, and its mojibake from a UTF-8 NBSP read
// as Latin-1, to a plain space.
var nbsp = strings.NewReplacer("\u00c2\u00a0", " ", "\u00c2 ", " ", "\u00a0", " ")

// Normalize replaces non-breaking spaces with plain spaces and trims
// surrounding whitespace in every string value. Non-string values are left
// alone, so it belongs before Coerce in a chain.
type Normalize struct{}

// Apply normalizes r in place and returns it.
func (Normalize) Apply(r records.Record) records.Record {
	for i := 0; i < r.Len(); i++ {
		s, ok := r.At(i).(string)
		if !ok {
			continue
		}
		if n := NormalizeString(s); n != s {
			r.SetAt(i, n)
		}
	}
	return r
}

// NormalizeString applies the Normalize rules to one string.
func NormalizeString(s string) string {
	if !HasEdgeSpace(s) && !strings.ContainsRune(s, '\u00a0') && !strings.Contains(s, "\u00c2 ") {
		return s
	}
	return strings.TrimSpace(nbsp.Replace(s))
}

// HasEdgeSpace reports whether s starts or ends with an ASCII space, tab,
// CR or LF.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }
