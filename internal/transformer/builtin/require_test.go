package builtin

import (
	"errors"
	"testing"

	"csv2json/pkg/records"
)

func TestRequire(t *testing.T) {
	raw := []string{"y", "d"}
	h := records.NewHeader(raw)
	rec := records.FromCells(h, raw, []string{"2010", "D1"})

	if err := (Require{Fields: []string{"y", "d"}}).Check(h); err != nil {
		t.Fatalf("Check: %v", err)
	}
	vals, err := Require{Fields: []string{"d", "y"}}.Values(rec)
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if vals[0] != "D1" || vals[1] != "2010" {
		t.Fatalf("Values = %v", vals)
	}

	err = Require{Fields: []string{"y", "n"}}.Check(h)
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("Check err = %v, want ErrMissingColumn", err)
	}
	if _, err := (Require{Fields: []string{"l"}}).Values(rec); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("Values err = %v, want ErrMissingColumn", err)
	}
}
