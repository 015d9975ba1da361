// Package dir writes documents as files into a directory.
package dir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"csv2json/internal/storage"
)

func init() {
	storage.Register("dir", func(_ context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(cfg.Dir)
	})
}

// Sink writes each document to <Dir>/<Name>.
type Sink struct {
	Dir string
}

var _ storage.Sink = (*Sink)(nil)

// New returns a Sink rooted at dir, creating it if needed. An empty dir means
// the working directory.
func New(dir string) (*Sink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("dir: create %s: %w", dir, err)
	}
	return &Sink{Dir: dir}, nil
}

// Location returns the file path the document is written to.
func (s *Sink) Location(name string) string { return filepath.Join(s.Dir, name) }

// Put creates or truncates the target file.
func (s *Sink) Put(ctx context.Context, doc storage.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(s.Location(doc.Name), doc.Body, 0o644); err != nil {
		return fmt.Errorf("dir: write %s: %w", doc.Name, err)
	}
	return nil
}

// Close is a no-op.
func (s *Sink) Close() error { return nil }
