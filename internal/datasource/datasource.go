// Package datasource resolves where the CSV input comes from.
//
// An empty path or "-" means standard input, an http or https URL is fetched
// with the retrying client in httpds, and anything else is a local file.
package datasource

import (
	"context"
	"io"
	"strings"

	"csv2json/internal/datasource/file"
	"csv2json/internal/datasource/httpds"
)

// Source yields the raw input stream. The caller closes it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Resolve picks a Source for path. stdin backs the "-" source; httpCfg
// configures URL sources.
func Resolve(path string, stdin io.Reader, httpCfg httpds.Config) Source {
	switch {
	case path == "" || path == "-":
		return file.NewStdin(stdin)
	case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
		return httpds.NewSource(httpds.NewClient(httpCfg), path)
	default:
		return file.NewLocal(path)
	}
}
