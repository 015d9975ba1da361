package csv

import (
	"bufio"
	"errors"
	"bytes"
	"io"
	"unicode/utf8"
)

// ErrUnterminatedQuote is reported when input ends inside a quoted field.
var ErrUnterminatedQuote = errors.New("unterminated quoted field")

// splitter tokenizes rows for dialects encoding/csv cannot express: a quote
// character other than '"', or no quoting at all (quote == 0).
//
// Rules:
//   - a quote opens a quoted field only at the start of a field;
//   - inside a quoted field a doubled quote is a literal quote and newlines
//     are kept;
//   - text after a closing quote is appended as-is up to the next delimiter;
//   - "\r\n" and "\n" both end a row; blank rows are skipped.
type splitter struct {
	br    *bufio.Reader
	comma rune
	quote rune
	line  int // lines consumed so far
	start int // line the last returned row started on
}

func newSplitter(r io.Reader, comma, quote rune) *splitter {
	return &splitter{br: bufio.NewReaderSize(r, 64*1024), comma: comma, quote: quote}
}

func (s *splitter) Line() int { return s.start }

func (s *splitter) Read() ([]string, error) {
	for {
		row, err := s.readRow()
		if err != nil {
			return nil, err
		}
		if row != nil {
			return row, nil
		}
	}
}

// readRow returns nil, nil for a blank line.
func (s *splitter) readRow() ([]string, error) {
	var (
		fields   []string
		field    bytes.Buffer
		inQuotes bool
		atStart  = true
		sawAny   bool
	)
	s.start = s.line + 1

	endRow := func() []string {
		s.line++
		if len(fields) == 0 && field.Len() == 0 && atStart {
			return nil
		}
		return append(fields, field.String())
	}

	for {
		r, raw, err := s.readRune()
		if err == io.EOF {
			if inQuotes {
				return nil, &ParseError{Line: s.start, Err: ErrUnterminatedQuote}
			}
			if !sawAny {
				return nil, io.EOF
			}
			if row := endRow(); row != nil {
				return row, nil
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		sawAny = true

		if inQuotes {
			if r == s.quote {
				next, _, err := s.readRune()
				if err == nil && next == s.quote {
					field.WriteRune(s.quote)
					continue
				}
				if err == nil {
					s.unread(next)
				}
				inQuotes = false
				continue
			}
			if r == '\n' {
				s.line++
			}
			put(&field, r, raw)
			continue
		}

		switch {
		case r == s.comma:
			fields = append(fields, field.String())
			field.Reset()
			atStart = true
		case r == '\r':
			if next, _, err := s.readRune(); err == nil && next != '\n' {
				s.unread(next)
			}
			return endRow(), nil
		case r == '\n':
			return endRow(), nil
		case s.quote != 0 && r == s.quote && atStart && field.Len() == 0:
			inQuotes = true
			atStart = false
		default:
			put(&field, r, raw)
			atStart = false
		}
	}
}

// readRune reads one rune. A byte that does not start valid UTF-8 comes back
// as r == -1 with the byte in raw, so it can be copied through unchanged.
func (s *splitter) readRune() (r rune, raw byte, err error) {
	r, size, err := s.br.ReadRune()
	if err != nil || r != utf8.RuneError || size != 1 {
		return r, 0, err
	}
	if err := s.br.UnreadRune(); err != nil {
		return 0, 0, err
	}
	raw, err = s.br.ReadByte()
	return -1, raw, err
}

// unread pushes back the rune last returned by readRune.
func (s *splitter) unread(r rune) {
	if r < 0 {
		_ = s.br.UnreadByte()
		return
	}
	_ = s.br.UnreadRune()
}

func put(field *bytes.Buffer, r rune, raw byte) {
	if r < 0 {
		field.WriteByte(raw)
		return
	}
	field.WriteRune(r)
}
