// Package group buckets coerced records.
//
// Limitations merges records that describe the same limitation across years
// and emits entries sorted by their composite key. Splitter partitions records
// by one column, keeping first-seen order, and builds a per-year catalog of
// disease codes on the side.
package group

import (
	"sort"
	"strings"

	"csv2json/internal/transformer/builtin"
	"csv2json/pkg/records"
)

// ErrMissingColumn is returned when a record lacks a column the grouping
// depends on.
var ErrMissingColumn = builtin.ErrMissingColumn

// Column names read by Limitations.
const (
	ColumnYear       = "y"
	ColumnDisease    = "d"
	ColumnLimitation = "l"
	ColumnName       = "n"
)

const (
	// YearPlaceholder replaces the first occurrence of the year in the
	// limitation text.
	YearPlaceholder = "{{{YEAR}}}"

	// KeySeparator joins the parts of a composite key.
	KeySeparator = "___"
)

// LimitationEntry is one merged limitation.
type LimitationEntry struct {
	Limitation  any   `json:"l"`
	Disease     any   `json:"d"`
	DiseaseName any   `json:"n"`
	Years       []any `json:"y"`
}

// Limitations accumulates LimitationEntry values keyed by composite key.
type Limitations struct {
	require builtin.Require
	entries map[string]*LimitationEntry
}

// NewLimitations returns an empty accumulator.
func NewLimitations() *Limitations {
	return &Limitations{
		require: builtin.Require{Fields: []string{ColumnYear, ColumnDisease, ColumnLimitation, ColumnName}},
		entries: make(map[string]*LimitationEntry),
	}
}

// Check accepts any header. A missing column is reported by Add for the
// first record, so an input without body rows yields no entries.
func (g *Limitations) Check(h *records.Header) error {
	return nil
}

// SubstituteYear replaces the first occurrence of the year's text form in the
// limitation with YearPlaceholder. An empty year matches at the start of the
// text. A limitation that is not text is returned unchanged.
func SubstituteYear(limitation, year any) any {
	s, ok := limitation.(string)
	if !ok {
		return limitation
	}
	return strings.Replace(s, records.Text(year), YearPlaceholder, 1)
}

// Key builds the composite key of a record.
func Key(diseaseName, limitation, disease any) string {
	return records.Text(diseaseName) + KeySeparator + records.Text(limitation) + KeySeparator + records.Text(disease)
}

// Add merges rec into its entry, recording its year once.
func (g *Limitations) Add(rec records.Record) error {
	vals, err := g.require.Values(rec)
	if err != nil {
		return err
	}
	year, disease, limitation, name := vals[0], vals[1], vals[2], vals[3]

	limitation = SubstituteYear(limitation, year)
	key := Key(name, limitation, disease)

	e, ok := g.entries[key]
	if !ok {
		e = &LimitationEntry{
			Limitation:  limitation,
			Disease:     disease,
			DiseaseName: name,
			Years:       []any{},
		}
		g.entries[key] = e
	}
	for _, y := range e.Years {
		if records.Compare(y, year) == 0 {
			return nil
		}
	}
	e.Years = append(e.Years, year)
	return nil
}

// Len is the number of distinct keys seen.
func (g *Limitations) Len() int { return len(g.entries) }

// Entries returns the entries ordered by composite key, each with its years
// sorted ascending.
func (g *Limitations) Entries() []LimitationEntry {
	keys := make([]string, 0, len(g.entries))
	for k := range g.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]LimitationEntry, 0, len(keys))
	for _, k := range keys {
		e := *g.entries[k]
		years := append([]any(nil), e.Years...)
		sort.SliceStable(years, func(i, j int) bool {
			return records.Compare(years[i], years[j]) < 0
		})
		e.Years = years
		out = append(out, e)
	}
	return out
}
