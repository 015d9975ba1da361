package csv

import (
	gocsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"csv2json/pkg/records"
)

// ErrFieldCount is reported when a body row's width differs from the header.
var ErrFieldCount = errors.New("wrong number of fields")

// ParseError locates a row-level failure.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("csv: line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// rowSource yields raw rows and the input line each one started on.
type rowSource interface {
	Read() ([]string, error)
	Line() int
}

// Reader turns delimited text into records. The header row is consumed by
// NewReader; each Next call returns one body row. Reader is not safe for
// concurrent use.
type Reader struct {
	src    rowSource
	raw    []string
	header *records.Header
	trim   bool
	rows   int
	done   bool
}

// NewReader wraps r and reads the header row. An empty input yields an empty
// header and no records.
func NewReader(r io.Reader, opt Options) (*Reader, error) {
	in, err := wrapInput(r, opt)
	if err != nil {
		return nil, err
	}

	comma := ResolveDelimiter(opt.Delimiter)
	quote := resolveQuote(opt.Quote)

	var src rowSource
	if quote == '"' {
		cr := gocsv.NewReader(in)
		cr.Comma = comma
		cr.LazyQuotes = opt.LazyQuotes
		cr.FieldsPerRecord = -1 // width is enforced against the header below
		src = &stdRows{cr: cr}
	} else {
		src = newSplitter(in, comma, quote)
	}

	hdr, err := src.Read()
	if err == io.EOF {
		return &Reader{src: src, header: records.NewHeader(nil), done: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	raw := make([]string, len(hdr))
	copy(raw, hdr)
	StripHeaderBOM(raw)
	for i, h := range raw {
		if opt.TrimSpace {
			h = strings.TrimSpace(h)
		}
		if mapped, ok := opt.HeaderMap[h]; ok && mapped != "" {
			h = mapped
		}
		raw[i] = h
	}

	return &Reader{
		src:    src,
		raw:    raw,
		header: records.NewHeader(raw),
		trim:   opt.TrimSpace,
	}, nil
}

// Header returns the column set shared by every record of this input.
func (r *Reader) Header() *records.Header { return r.header }

// Rows is the number of body rows returned so far.
func (r *Reader) Rows() int { return r.rows }

// Next returns the next record, or io.EOF after the last one. A row whose
// width differs from the header yields a *ParseError wrapping ErrFieldCount.
func (r *Reader) Next() (records.Record, error) {
	if r.done {
		return records.Record{}, io.EOF
	}
	row, err := r.src.Read()
	if err == io.EOF {
		return records.Record{}, io.EOF
	}
	if err != nil {
		return records.Record{}, fmt.Errorf("csv: read: %w", err)
	}
	if len(row) != len(r.raw) {
		return records.Record{}, &ParseError{
			Line: r.src.Line(),
			Err:  fmt.Errorf("%w: expected %d, got %d", ErrFieldCount, len(r.raw), len(row)),
		}
	}
	if r.trim {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
	}
	r.rows++
	return records.FromCells(r.header, r.raw, row), nil
}

// stdRows adapts encoding/csv, used for the double-quote dialect.
type stdRows struct {
	cr   *gocsv.Reader
	line int
}

func (s *stdRows) Read() ([]string, error) {
	row, err := s.cr.Read()
	if err != nil {
		return nil, err
	}
	s.line, _ = s.cr.FieldPos(0)
	return row, nil
}

func (s *stdRows) Line() int { return s.line }
