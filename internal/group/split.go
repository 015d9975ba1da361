package group

import (
	"fmt"

	"csv2json/internal/transformer/builtin"
	"csv2json/pkg/records"
)

// CatalogEntry lists the disease codes observed for one year, in first-seen
// order.
type CatalogEntry struct {
	Name     any   `json:"name"`
	Label    any   `json:"label"`
	Diseases []any `json:"diseases"`
}

// Partition is the ordered list of records sharing one column value.
type Partition struct {
	Value   any
	Records []records.Record
}

// Splitter partitions records by Column and builds the year catalog.
type Splitter struct {
	Column        string
	YearColumn    string
	DiseaseColumn string

	parts   []*Partition
	byValue map[string]*Partition
	years   []*CatalogEntry
	byYear  map[string]*CatalogEntry
	total   int
}

// NewSplitter returns a Splitter grouping on column. Empty catalog column
// names fall back to ColumnYear and ColumnDisease.
func NewSplitter(column, yearColumn, diseaseColumn string) *Splitter {
	if yearColumn == "" {
		yearColumn = ColumnYear
	}
	if diseaseColumn == "" {
		diseaseColumn = ColumnDisease
	}
	return &Splitter{
		Column:        column,
		YearColumn:    yearColumn,
		DiseaseColumn: diseaseColumn,
		byValue:       make(map[string]*Partition),
		byYear:        make(map[string]*CatalogEntry),
	}
}

func (s *Splitter) require() builtin.Require {
	return builtin.Require{Fields: []string{s.Column, s.YearColumn, s.DiseaseColumn}}
}

// Check fails fast when the grouping or catalog columns are absent.
func (s *Splitter) Check(h *records.Header) error {
	if s.Column == "" {
		return fmt.Errorf("%w: no grouping column configured", ErrMissingColumn)
	}
	return s.require().Check(h)
}

// Add appends rec to its partition and records its (year, disease) pair.
func (s *Splitter) Add(rec records.Record) error {
	vals, err := s.require().Values(rec)
	if err != nil {
		return err
	}
	value, year, disease := vals[0], vals[1], vals[2]

	pk := records.Key(value)
	p, ok := s.byValue[pk]
	if !ok {
		p = &Partition{Value: value}
		s.byValue[pk] = p
		s.parts = append(s.parts, p)
	}
	p.Records = append(p.Records, rec)
	s.total++

	yk := records.Key(year)
	c, ok := s.byYear[yk]
	if !ok {
		c = &CatalogEntry{Name: year, Label: year, Diseases: []any{}}
		s.byYear[yk] = c
		s.years = append(s.years, c)
	}
	for _, d := range c.Diseases {
		if records.Compare(d, disease) == 0 {
			return nil
		}
	}
	c.Diseases = append(c.Diseases, disease)
	return nil
}

// Partitions returns the partitions in the order their values were first
// seen.
func (s *Splitter) Partitions() []*Partition { return s.parts }

// Catalog returns the catalog entries in the order years were first seen.
func (s *Splitter) Catalog() []*CatalogEntry { return s.years }

// Total is the number of records added.
func (s *Splitter) Total() int { return s.total }
