package records

import (
	"math/big"
	"testing"
)

func TestFloat_String(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{3, "3.0"},
		{3.14, "3.14"},
		{-0.5, "-0.5"},
		{0, "0.0"},
		{1e6, "1000000.0"},
		{1e16, "1e+16"},
		{1.5e-7, "1.5e-07"},
		{0.0001, "0.0001"},
	}
	for _, tc := range cases {
		if got := Float(tc.in).String(); got != tc.want {
			t.Errorf("Float(%v).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestText(t *testing.T) {
	b, _ := new(big.Int).SetString("99999999999999999999", 10)
	cases := []struct {
		in   any
		want string
	}{
		{"Flu", "Flu"},
		{int64(2010), "2010"},
		{Float(2.5), "2.5"},
		{b, "99999999999999999999"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := Text(tc.in); got != tc.want {
			t.Errorf("Text(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCompare(t *testing.T) {
	b, _ := new(big.Int).SetString("99999999999999999999", 10)
	cases := []struct {
		a, b any
		want int
	}{
		{int64(2010), int64(2011), -1},
		{int64(2010), Float(2010), 0},
		{Float(9.5), int64(9), 1},
		{b, int64(1), 1},
		{int64(5), "4", -1},
		{"a", int64(5), 1},
		{"abc", "abd", -1},
		{"x", "x", 0},
	}
	for _, tc := range cases {
		if got := Compare(tc.a, tc.b); got != tc.want {
			t.Errorf("Compare(%#v, %#v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestKey(t *testing.T) {
	if Key(int64(2010)) != Key(Float(2010)) {
		t.Fatalf("Key(2010) != Key(2010.0)")
	}
	if Key(int64(7)) == Key("7") {
		t.Fatalf("numeric and string keys collide")
	}
	if Key("a") == Key("b") {
		t.Fatalf("distinct strings collide")
	}
}
