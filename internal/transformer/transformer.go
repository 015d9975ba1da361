// Package transformer defines per-record transforms applied between reading
// and grouping.
package transformer

import "csv2json/pkg/records"

// Transformer rewrites one record. Implementations may modify rec in place
// and return it.
type Transformer interface {
	Apply(rec records.Record) records.Record
}

// Func adapts a plain function to Transformer.
type Func func(records.Record) records.Record

// Apply calls f.
func (f Func) Apply(rec records.Record) records.Record { return f(rec) }

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs each transformer in order.
func (c Chain) Apply(rec records.Record) records.Record {
	for _, t := range c {
		rec = t.Apply(rec)
	}
	return rec
}
