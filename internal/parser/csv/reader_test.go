package csv

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"

	"csv2json/internal/config"
)

// readAll drains r into a slice of column->string maps for easy comparison.
func readAll(t *testing.T, r *Reader) []map[string]string {
	t.Helper()
	var out []map[string]string
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		m := map[string]string{}
		for _, name := range rec.Header().Names() {
			v, _ := rec.Get(name)
			m[name] = v.(string)
		}
		out = append(out, m)
	}
}

func mustReader(t *testing.T, in string, opt Options) *Reader {
	t.Helper()
	r, err := NewReader(strings.NewReader(in), opt)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func TestResolveDelimiter(t *testing.T) {
	cases := map[string]rune{
		"":    ',',
		"tab": '\t',
		"sc":  ';',
		"bar": '|',
		",":   ',',
		"::":  ':',
		"t":   't',
	}
	for in, want := range cases {
		if got := ResolveDelimiter(in); got != want {
			t.Errorf("ResolveDelimiter(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReader_Dialects(t *testing.T) {
	want := []map[string]string{
		{"y": "2010", "n": "Flu, seasonal"},
		{"y": "2011", "n": "Measles"},
	}
	cases := []struct {
		name string
		in   string
		opt  Options
	}{
		{"comma", "y,n\n2010,\"Flu, seasonal\"\n2011,Measles\n", DefaultOptions()},
		{"tab", "y\tn\n2010\tFlu, seasonal\n2011\tMeasles\n", Options{Delimiter: "tab", Quote: `"`}},
		{"sc", "y;n\r\n2010;Flu, seasonal\r\n2011;Measles\r\n", Options{Delimiter: "sc", Quote: `"`}},
		{"bar", "y|n\n2010|Flu, seasonal\n2011|Measles", Options{Delimiter: "bar", Quote: `"`}},
		{"single quote", "y,n\n2010,'Flu, seasonal'\n2011,Measles\n", Options{Delimiter: ",", Quote: "'"}},
		{"no quoting", "y|n\n2010|Flu, seasonal\n\n2011|Measles\n", Options{Delimiter: "bar"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := readAll(t, mustReader(t, tc.in, tc.opt))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReader_TabShorthandIsNotLiteral(t *testing.T) {
	// With the shorthand resolved, "tab" inside a cell is plain text.
	r := mustReader(t, "a\tb\nxtaby\tz\n", Options{Delimiter: "tab", Quote: `"`})
	got := readAll(t, r)
	if len(got) != 1 || got[0]["a"] != "xtaby" || got[0]["b"] != "z" {
		t.Fatalf("got %v", got)
	}
}

func TestReader_FieldCountMismatch(t *testing.T) {
	for _, opt := range []Options{DefaultOptions(), {Delimiter: ",", Quote: "'"}} {
		r := mustReader(t, "a,b\n1,2\n1,2,3\n", opt)
		if _, err := r.Next(); err != nil {
			t.Fatalf("first row: %v", err)
		}
		_, err := r.Next()
		if !errors.Is(err, ErrFieldCount) {
			t.Fatalf("quote %q: err = %v, want ErrFieldCount", opt.Quote, err)
		}
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Line != 3 {
			t.Fatalf("quote %q: err = %#v, want ParseError at line 3", opt.Quote, err)
		}
	}
}

func TestReader_CustomQuote(t *testing.T) {
	in := "a,b\n'it''s','two\nlines'\n'x'y,z\n"
	got := readAll(t, mustReader(t, in, Options{Delimiter: ",", Quote: "'"}))
	want := []map[string]string{
		{"a": "it's", "b": "two\nlines"},
		{"a": "xy", "b": "z"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReader_UnterminatedQuote(t *testing.T) {
	r := mustReader(t, "a\n'open\n", Options{Delimiter: ",", Quote: "'"})
	if _, err := r.Next(); !errors.Is(err, ErrUnterminatedQuote) {
		t.Fatalf("err = %v, want ErrUnterminatedQuote", err)
	}
}

func TestReader_HeaderHandling(t *testing.T) {
	opt := DefaultOptions()
	opt.TrimSpace = true
	opt.HeaderMap = map[string]string{"Year": "y"}
	r := mustReader(t, "\uFEFFYear , name\n 2010 , Flu \n", opt)

	if diff := cmp.Diff([]string{"y", "name"}, r.Header().Names()); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	got := readAll(t, r)
	if got[0]["y"] != "2010" || got[0]["name"] != "Flu" {
		t.Fatalf("got %v", got)
	}
	if r.Rows() != 1 {
		t.Fatalf("Rows = %d, want 1", r.Rows())
	}
}

func TestReader_EmptyInput(t *testing.T) {
	for _, opt := range []Options{DefaultOptions(), {Delimiter: ",", Quote: "'"}} {
		r, err := NewReader(strings.NewReader(""), opt)
		if err != nil {
			t.Fatalf("quote %q: NewReader: %v", opt.Quote, err)
		}
		if r.Header().Len() != 0 {
			t.Fatalf("quote %q: header = %v, want empty", opt.Quote, r.Header().Names())
		}
		for i := 0; i < 2; i++ {
			if _, err := r.Next(); err != io.EOF {
				t.Fatalf("quote %q: Next #%d err = %v, want io.EOF", opt.Quote, i, err)
			}
		}
	}
}

func TestReader_StrayQuoteInUnquotedField(t *testing.T) {
	cases := []struct {
		quote string
		in    string
		want  string
	}{
		{`"`, "a,b\n1,5\" gauge\n", `5" gauge`},
		{"'", "a,b\n1,5' gauge\n", "5' gauge"},
	}
	for _, tc := range cases {
		opt := OptionsFrom(config.Options{"quote": tc.quote})
		got := readAll(t, mustReader(t, tc.in, opt))
		if len(got) != 1 || got[0]["a"] != "1" || got[0]["b"] != tc.want {
			t.Fatalf("quote %q: got %v, want b=%q", tc.quote, got, tc.want)
		}
	}
}

func TestReader_InvalidUTF8KeptAsIs(t *testing.T) {
	in := "a,b\n\xff\xfe,'x\xc8y'\n"
	for _, quote := range []string{`"`, "'", ""} {
		got := readAll(t, mustReader(t, in, Options{Delimiter: ",", Quote: quote}))
		wantB := "x\xc8y"
		if quote == `"` || quote == "" {
			wantB = "'x\xc8y'"
		}
		if len(got) != 1 || got[0]["a"] != "\xff\xfe" || got[0]["b"] != wantB {
			t.Fatalf("quote %q: got %q", quote, got)
		}
	}
}

func TestReader_EncodingAndNormalization(t *testing.T) {
	opt := DefaultOptions()
	opt.Encoding = "windows-1250"
	got := readAll(t, mustReader(t, "n\n\xC8R\n", opt))
	if got[0]["n"] != "ČR" {
		t.Fatalf("decoded = %q, want %q", got[0]["n"], "ČR")
	}

	opt = DefaultOptions()
	opt.NormalizeUnicode = true
	got = readAll(t, mustReader(t, "n\ncafe\u0301\n", opt))
	if got[0]["n"] != "caf\u00e9" {
		t.Fatalf("normalized = %q, want NFC form", got[0]["n"])
	}

	opt = DefaultOptions()
	opt.Encoding = "no-such-charset"
	if _, err := NewReader(strings.NewReader("a\n"), opt); err == nil {
		t.Fatalf("unknown encoding: want error")
	}
}

func TestReader_Scrub(t *testing.T) {
	opt := DefaultOptions()
	opt.Scrub = map[string]string{` "v likvidaci""`: ` (v likvidaci)"`}
	in := "n\n\"Acme \"v likvidaci\"\"\n"
	got := readAll(t, mustReader(t, in, opt))
	if got[0]["n"] != "Acme (v likvidaci)" {
		t.Fatalf("scrubbed = %q", got[0]["n"])
	}
}

func TestStreamingRewriter_ChunkBoundary(t *testing.T) {
	// The pattern straddles the 64 KiB read boundary.
	prefix := strings.Repeat("x", 64*1024-3)
	in := prefix + "ABCDEF" + "tail"
	sr := newStreamingRewriter(strings.NewReader(in), []byte("ABCDEF"), []byte("-"))
	b, err := io.ReadAll(sr)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if got, want := string(b), prefix+"-tail"; got != want {
		t.Fatalf("rewritten tail = %q, want %q", got[len(got)-10:], want[len(want)-10:])
	}
}

func TestStreamingRewriter_MatchesReplaceAll(t *testing.T) {
	size := 64 * 1024
	cases := []struct {
		name      string
		in        string
		pat, repl string
	}{
		// The tail of the replacement plus the next chunk spells the pattern.
		{"repl re-forms pat", strings.Repeat("z", size-2) + "ab" + "b", "ab", "xa"},
		{"pat at boundary", strings.Repeat("z", size-1) + "ab" + "ab", "ab", "xa"},
		{"longer pat", strings.Repeat("q", size-4) + "abcabcabc", "abca", "a"},
		{"growing repl", strings.Repeat("ab", size), "a", "aaa"},
		{"overlapping", strings.Repeat("a", size+7), "aa", "b"},
	}
	readers := map[string]func(string) io.Reader{
		"whole":    func(s string) io.Reader { return strings.NewReader(s) },
		"one byte": func(s string) io.Reader { return iotest.OneByteReader(strings.NewReader(s)) },
		"half":     func(s string) io.Reader { return iotest.HalfReader(strings.NewReader(s)) },
	}
	for _, tc := range cases {
		for rname, mk := range readers {
			sr := newStreamingRewriter(mk(tc.in), []byte(tc.pat), []byte(tc.repl))
			b, err := io.ReadAll(sr)
			if err != nil {
				t.Fatalf("%s/%s: ReadAll: %v", tc.name, rname, err)
			}
			if got, want := string(b), strings.ReplaceAll(tc.in, tc.pat, tc.repl); got != want {
				t.Fatalf("%s/%s: len %d, want %d; tail %q, want %q",
					tc.name, rname, len(got), len(want), tailOf(got), tailOf(want))
			}
		}
	}
}

func tailOf(s string) string {
	if len(s) > 12 {
		return s[len(s)-12:]
	}
	return s
}

func TestOptionsFrom(t *testing.T) {
	o := config.Options{
		"delimiter":  "sc",
		"quote":      "",
		"trim_space": true,
		"header_map": map[string]any{"Year": "y"},
		"encoding":   "latin1",
	}
	got := OptionsFrom(o)
	want := Options{
		Delimiter:  "sc",
		Quote:      "",
		LazyQuotes: true,
		TrimSpace:  true,
		HeaderMap:  map[string]string{"Year": "y"},
		Encoding:   "latin1",
		Scrub:      map[string]string{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("OptionsFrom mismatch (-want +got):\n%s", diff)
	}

	def := OptionsFrom(config.Options{})
	if def.Delimiter != "," || def.Quote != `"` || !def.LazyQuotes {
		t.Fatalf("defaults = %+v", def)
	}
}
