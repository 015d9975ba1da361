package records

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Float is a coerced floating-point value. It always encodes with a
// fractional part or an exponent so that 3.0 does not read back as an
// integer.
type Float float64

// String renders f the way the JSON output does: shortest round-trip digits,
// positional between 1e-4 and 1e16, exponent form outside that range.
func (f Float) String() string {
	v := float64(f)
	if v == 0 {
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}
	abs := math.Abs(v)
	if abs >= 1e16 || abs < 1e-4 {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("records: unsupported float value %v", v)
	}
	return []byte(f.String()), nil
}

// Text renders a value for use inside composite keys and document names.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case *big.Int:
		return t.String()
	case Float:
		return t.String()
	case float64:
		return Float(t).String()
	default:
		return fmt.Sprint(t)
	}
}

// IsNumeric reports whether v holds one of the numeric value types.
func IsNumeric(v any) bool {
	switch v.(type) {
	case int64, int, *big.Int, Float, float64:
		return true
	}
	return false
}

// Compare orders two values: numbers compare numerically and sort before
// everything else; strings compare bytewise. It returns 0 for equal values,
// so an int64 2010 and a Float 2010.0 compare equal.
func Compare(a, b any) int {
	an, aok := toBig(a)
	bn, bok := toBig(b)
	switch {
	case aok && bok:
		return an.Cmp(bn)
	case aok:
		return -1
	case bok:
		return 1
	}
	return strings.Compare(Text(a), Text(b))
}

// toBig widens any numeric value to an exact big.Float.
func toBig(v any) (*big.Float, bool) {
	switch t := v.(type) {
	case int64:
		return new(big.Float).SetInt64(t), true
	case int:
		return new(big.Float).SetInt64(int64(t)), true
	case *big.Int:
		return new(big.Float).SetInt(t), true
	case Float:
		return new(big.Float).SetFloat64(float64(t)), true
	case float64:
		return new(big.Float).SetFloat64(t), true
	}
	return nil, false
}

// Key returns a map key under which values that Compare equal coincide.
func Key(v any) string {
	if n, ok := toBig(v); ok {
		return "#" + n.Text('g', -1)
	}
	return "$" + Text(v)
}
