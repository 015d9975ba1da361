package builtin

import (
	"errors"
	"fmt"

	"csv2json/pkg/records"
)

// ErrMissingColumn is returned when a column a grouping step depends on is
// not present in the input.
var ErrMissingColumn = errors.New("missing required column")

// Require checks that the input carries every listed column.
type Require struct {
	Fields []string
}

// Check reports the first listed column absent from h.
func (r Require) Check(h *records.Header) error {
	for _, f := range r.Fields {
		if !h.Has(f) {
			return fmt.Errorf("%w %q", ErrMissingColumn, f)
		}
	}
	return nil
}

// Values returns the values of the listed columns of rec, in order.
func (r Require) Values(rec records.Record) ([]any, error) {
	out := make([]any, len(r.Fields))
	for i, f := range r.Fields {
		v, ok := rec.Get(f)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, f)
		}
		out[i] = v
	}
	return out, nil
}
