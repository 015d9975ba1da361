package builtin

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"csv2json/pkg/records"
)

var (
	intLiteral   = regexp.MustCompile(`^[+-]?[0-9]+$`)
	floatLiteral = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)
)

// IsNumber reports whether s is a decimal or exponential numeric literal.
// Surrounding ASCII whitespace is ignored; nan, inf and hex forms are not
// numbers, and neither is a literal whose magnitude overflows float64.
func IsNumber(s string) bool {
	s = strings.TrimSpace(s)
	if !floatLiteral.MatchString(s) {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// IsInt reports whether s is an optionally signed run of digits. Leading zeros
// are allowed ("007" is 7).
func IsInt(s string) bool {
	return intLiteral.MatchString(strings.TrimSpace(s))
}

// Sniff coerces one raw cell: integer first, then float, otherwise the
// original string unchanged.
func Sniff(s string) any {
	if !IsNumber(s) {
		return s
	}
	t := strings.TrimSpace(s)
	if IsInt(t) {
		if i, err := strconv.ParseInt(t, 10, 64); err == nil {
			return i
		}
		if bi, ok := new(big.Int).SetString(strings.TrimPrefix(t, "+"), 10); ok {
			return bi
		}
		return s
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return s
	}
	return records.Float(f)
}

// Coerce rewrites string values into numbers where they parse as such.
// Columns listed in Keep are left as raw strings.
type Coerce struct {
	Keep []string
}

// Apply coerces r in place and returns it. Each field is handled on its own;
// a value that does not parse is left as it was.
func (c Coerce) Apply(r records.Record) records.Record {
	h := r.Header()
	for i := 0; i < r.Len(); i++ {
		if c.keeps(h.Names()[i]) {
			continue
		}
		if s, ok := r.At(i).(string); ok {
			r.SetAt(i, Sniff(s))
		}
	}
	return r
}

func (c Coerce) keeps(col string) bool {
	for _, k := range c.Keep {
		if k == col {
			return true
		}
	}
	return false
}
