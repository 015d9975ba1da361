package csv

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// wrapInput layers the optional byte-level passes over r, in order: charset
// decoding, NFC normalization, then the literal scrubs.
func wrapInput(r io.Reader, opt Options) (io.Reader, error) {
	if name := strings.TrimSpace(opt.Encoding); name != "" && !isUTF8(name) {
		enc, err := htmlindex.Get(name)
		if err != nil {
			return nil, fmt.Errorf("csv: encoding %q: %w", name, err)
		}
		r = transform.NewReader(r, enc.NewDecoder())
	}
	if opt.NormalizeUnicode {
		r = transform.NewReader(r, norm.NFC)
	}

	// Apply scrubs in a stable order so overlapping rules behave the same on
	// every run.
	pats := make([]string, 0, len(opt.Scrub))
	for p := range opt.Scrub {
		if p != "" {
			pats = append(pats, p)
		}
	}
	sort.Strings(pats)
	for _, p := range pats {
		r = newStreamingRewriter(r, []byte(p), []byte(opt.Scrub[p]))
	}
	return r, nil
}

func isUTF8(name string) bool {
	switch strings.ToLower(name) {
	case "utf-8", "utf8", "unicode-1-1-utf-8":
		return true
	}
	return false
}
