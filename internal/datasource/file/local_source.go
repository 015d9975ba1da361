// Package file implements local data sources: a path on disk or an already
// open reader such as standard input.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local opens a file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open returns the context error if ctx is already done. Otherwise it opens
// the file; errors wrap the underlying *PathError so errors.Is(err,
// os.ErrNotExist) works.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Stdin serves a reader the process does not own. Closing the returned
// stream leaves the reader open.
type Stdin struct{ r io.Reader }

// NewStdin wraps r; a nil r means os.Stdin.
func NewStdin(r io.Reader) *Stdin {
	if r == nil {
		r = os.Stdin
	}
	return &Stdin{r: r}
}

// Open returns the wrapped reader with a no-op Close.
func (s *Stdin) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(s.r), nil
}
