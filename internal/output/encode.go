// Package output renders grouped records as compact JSON.
//
// WriteStream emits a single document to a stream, optionally wrapped as a
// JSONP callback or a variable assignment. Publisher writes one document per
// partition plus the year catalog through a storage.Sink.
package output

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Encode renders v as compact JSON without HTML escaping and without a
// trailing newline.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("output: encode: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// EscapeNonASCII rewrites every non-ASCII rune of an encoded document as a
// lowercase \uXXXX escape, using a surrogate pair above U+FFFF. Non-ASCII
// bytes only occur inside JSON strings, so the document stays equivalent.
func EscapeNonASCII(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] < utf8.RuneSelf {
		i++
	}
	if i == len(b) {
		return b
	}
	out := make([]byte, 0, len(b)+16)
	out = append(out, b[:i]...)
	for i < len(b) {
		if b[i] < utf8.RuneSelf {
			out = append(out, b[i])
			i++
			continue
		}
		r, size := utf8.DecodeRune(b[i:])
		i += size
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			out = fmt.Appendf(out, `\u%04x\u%04x`, r1, r2)
			continue
		}
		out = fmt.Appendf(out, `\u%04x`, r)
	}
	return out
}

// Wrap selects how a stream document is wrapped. Callback takes precedence
// over Variable; with neither set the bare JSON is written.
type Wrap struct {
	Callback string
	Variable string

	// ASCII escapes non-ASCII text in the document.
	ASCII bool
}

func (w Wrap) affixes() (prefix, suffix string) {
	switch {
	case w.Callback != "":
		return w.Callback + "(", ");"
	case w.Variable != "":
		return "var " + w.Variable + " = ", ";"
	}
	return "", ""
}

// WriteStream encodes v and writes it to w with the wrapping applied.
func WriteStream(w io.Writer, v any, wrap Wrap) error {
	body, err := Encode(v)
	if err != nil {
		return err
	}
	if wrap.ASCII {
		body = EscapeNonASCII(body)
	}
	prefix, suffix := wrap.affixes()
	out := make([]byte, 0, len(prefix)+len(body)+len(suffix))
	out = append(out, prefix...)
	out = append(out, body...)
	out = append(out, suffix...)
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("output: write stream: %w", err)
	}
	return nil
}
