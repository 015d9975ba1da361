// Package csv reads delimited text into records.Record values, one per body
// row, keyed by the header row. It handles the common "dirty input" knobs of
// real exports: delimiter shorthands, arbitrary or disabled quoting, legacy
// charsets, a UTF-8 BOM on the header and streaming byte scrubs.
package csv

import (
	"csv2json/internal/config"
)

// Options configures a Reader. Use DefaultOptions or OptionsFrom rather than
// the zero value: an empty Quote disables quoting altogether.
type Options struct {
	// Delimiter is a literal character or one of the shorthands "tab", "sc"
	// and "bar". Empty means ','.
	Delimiter string

	// Quote is the field quote character. Empty disables quoting.
	Quote string

	// LazyQuotes tolerates a quote appearing in an unquoted field.
	LazyQuotes bool

	// TrimSpace trims surrounding whitespace from every cell.
	TrimSpace bool

	// HeaderMap renames source header cells to canonical column names.
	HeaderMap map[string]string

	// Encoding names the input charset (e.g. "windows-1250"). Empty or any
	// UTF-8 alias means no decoding.
	Encoding string

	// NormalizeUnicode applies NFC normalization to the decoded text.
	NormalizeUnicode bool

	// Scrub lists literal byte sequences replaced on the fly before parsing.
	Scrub map[string]string
}

// DefaultOptions mirrors the conventional CSV dialect: comma delimited,
// double-quote quoted.
func DefaultOptions() Options {
	return Options{Delimiter: ",", Quote: `"`, LazyQuotes: true}
}

// OptionsFrom reads parser settings from a config options bag.
//
// Recognized keys: delimiter (string), quote (string), lazy_quotes (bool),
// trim_space (bool), header_map (object), encoding (string),
// normalize_unicode (bool), scrub (object).
func OptionsFrom(o config.Options) Options {
	return Options{
		Delimiter:        o.String("delimiter", ","),
		Quote:            o.String("quote", `"`),
		LazyQuotes:       o.Bool("lazy_quotes", true),
		TrimSpace:        o.Bool("trim_space", false),
		HeaderMap:        o.StringMap("header_map"),
		Encoding:         o.String("encoding", ""),
		NormalizeUnicode: o.Bool("normalize_unicode", false),
		Scrub:            o.StringMap("scrub"),
	}
}

// ResolveDelimiter maps the shorthand names to their characters; any other
// value contributes its first rune. Empty resolves to ','.
func ResolveDelimiter(s string) rune {
	switch s {
	case "":
		return ','
	case "tab":
		return '\t'
	case "sc":
		return ';'
	case "bar":
		return '|'
	}
	return []rune(s)[0]
}

// resolveQuote returns the quote rune, or 0 when quoting is disabled.
func resolveQuote(s string) rune {
	if s == "" {
		return 0
	}
	return []rune(s)[0]
}
