package csv

import (
	"bufio"
	"bytes"
	"io"
)

// streamingRewriter is an io.Reader that replaces every occurrence of pat
// with repl without buffering the whole stream. Matches are found in the raw
// input; the last len(pat)-1 raw bytes of each block are withheld and
// prepended to the next one, so replacement text is never scanned again.
type streamingRewriter struct {
	br    *bufio.Reader
	pat   []byte
	repl  []byte
	carry []byte       // raw bytes withheld between reads
	buf   bytes.Buffer // pending output to satisfy Read
	eof   bool
}

func newStreamingRewriter(r io.Reader, pat, repl []byte) *streamingRewriter {
	capacity := 0
	if n := len(pat) - 1; n > 0 {
		capacity = n
	}
	return &streamingRewriter{
		br:    bufio.NewReaderSize(r, 64*1024),
		pat:   pat,
		repl:  repl,
		carry: make([]byte, 0, capacity),
	}
}

// Read implements io.Reader.
func (sr *streamingRewriter) Read(p []byte) (int, error) {
	for {
		if sr.buf.Len() > 0 {
			return sr.buf.Read(p)
		}
		if sr.eof {
			return 0, io.EOF
		}
		if err := sr.fill(); err != nil {
			return 0, err
		}
	}
}

// fill reads one chunk, rewrites the part no later match can reach and
// moves it to buf.
func (sr *streamingRewriter) fill() error {
	tmp := make([]byte, 64*1024)
	n, rerr := sr.br.Read(tmp)
	if n > 0 {
		raw := tmp[:n]
		if len(sr.carry) > 0 {
			joined := make([]byte, 0, len(sr.carry)+n)
			joined = append(joined, sr.carry...)
			joined = append(joined, raw...)
			raw = joined
		}
		rest := sr.rewrite(raw)
		sr.carry = append(sr.carry[:0], rest...)
	}

	if rerr == io.EOF {
		// The carry is shorter than pat, so it cannot hold a match.
		sr.buf.Write(sr.carry)
		sr.carry = sr.carry[:0]
		sr.eof = true
		return nil
	}
	return rerr
}

// rewrite writes the replaced prefix of raw to buf and returns the raw tail
// where a match could still start once more input arrives.
func (sr *streamingRewriter) rewrite(raw []byte) []byte {
	if len(sr.pat) == 0 || bytes.Equal(sr.pat, sr.repl) {
		sr.buf.Write(raw)
		return nil
	}
	// A match starting before limit lies wholly inside raw.
	limit := len(raw) - (len(sr.pat) - 1)
	if limit < 0 {
		limit = 0
	}
	i := 0
	for {
		j := bytes.Index(raw[i:], sr.pat)
		if j < 0 || i+j >= limit {
			break
		}
		j += i
		sr.buf.Write(raw[i:j])
		sr.buf.Write(sr.repl)
		i = j + len(sr.pat)
	}
	if i < limit {
		sr.buf.Write(raw[i:limit])
		return raw[limit:]
	}
	return raw[i:]
}
