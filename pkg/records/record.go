// Package records defines the in-memory row model shared by the parser, the
// coercer, the groupers and the JSON writers.
//
// A Record is an ordered mapping from column name to value. All records read
// from one input share a single Header, so column order is the header order
// and JSON objects are emitted with keys in that order.
//
// Values are one of:
//
//   - int64       integer literals that fit in 64 bits
//   - *big.Int    integer literals outside the int64 range
//   - Float       any other numeric literal
//   - string      everything else
package records

import (
	"bytes"
	"fmt"
	"math/big"
	"strconv"

	json "github.com/goccy/go-json"
)

// Header is the ordered, de-duplicated column set of an input.
type Header struct {
	names []string
	index map[string]int
}

// NewHeader builds a Header from raw header cells. A repeated name keeps the
// position of its first occurrence; later cells with the same name write into
// that position.
func NewHeader(cells []string) *Header {
	h := &Header{index: make(map[string]int, len(cells))}
	for _, c := range cells {
		if _, ok := h.index[c]; ok {
			continue
		}
		h.index[c] = len(h.names)
		h.names = append(h.names, c)
	}
	return h
}

// Names returns the column names in order. The slice must not be modified.
func (h *Header) Names() []string { return h.names }

// Len is the number of distinct columns.
func (h *Header) Len() int { return len(h.names) }

// Has reports whether the header contains column name.
func (h *Header) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// Index returns the position of name, or -1.
func (h *Header) Index(name string) int {
	if i, ok := h.index[name]; ok {
		return i
	}
	return -1
}

// Record is one row keyed by the columns of its Header.
type Record struct {
	h *Header
	v []any
}

// New returns an empty record bound to h.
func New(h *Header) Record {
	return Record{h: h, v: make([]any, h.Len())}
}

// FromCells maps raw cells positionally onto h, honouring duplicate-name
// folding. len(cells) is expected to equal the raw header width.
func FromCells(h *Header, raw []string, cells []string) Record {
	r := New(h)
	for i, c := range cells {
		if i >= len(raw) {
			break
		}
		r.v[h.index[raw[i]]] = c
	}
	return r
}

// Header returns the header the record is bound to.
func (r Record) Header() *Header { return r.h }

// Len is the number of columns.
func (r Record) Len() int { return len(r.v) }

// Get returns the value of column name.
func (r Record) Get(name string) (any, bool) {
	if r.h == nil {
		return nil, false
	}
	i, ok := r.h.index[name]
	if !ok {
		return nil, false
	}
	return r.v[i], true
}

// Set replaces the value of an existing column. It reports false when the
// column is not part of the header.
func (r Record) Set(name string, v any) bool {
	if r.h == nil {
		return false
	}
	i, ok := r.h.index[name]
	if !ok {
		return false
	}
	r.v[i] = v
	return true
}

// At returns the value at position i.
func (r Record) At(i int) any { return r.v[i] }

// SetAt replaces the value at position i.
func (r Record) SetAt(i int, v any) { r.v[i] = v }

// MarshalJSON writes the record as a JSON object with keys in header order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.h.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalCompact(name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := marshalCompact(r.v[i])
		if err != nil {
			return nil, fmt.Errorf("records: column %q: %w", name, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order. Integer literals
// decode to int64 (or *big.Int), other numbers to Float. Nested values are
// decoded generically.
func (r *Record) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("records: expected object, got %v", tok)
	}

	var (
		names []string
		vals  []any
	)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("records: expected key, got %v", kt)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("records: key %q: %w", key, err)
		}
		if n, ok := raw.(json.Number); ok {
			raw = numberValue(n)
		}
		names = append(names, key)
		vals = append(vals, raw)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	h := NewHeader(names)
	rec := New(h)
	for i, name := range names {
		rec.v[h.index[name]] = vals[i]
	}
	*r = rec
	return nil
}

// numberValue maps a JSON number literal back onto the coerced value types.
func numberValue(n json.Number) any {
	s := n.String()
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if bi, ok := new(big.Int).SetString(s, 10); ok {
		return bi
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f)
	}
	return s
}

func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
