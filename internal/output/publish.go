package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zeebo/xxh3"

	"csv2json/internal/group"
	"csv2json/internal/metrics"
	"csv2json/internal/storage"
	"csv2json/pkg/records"
)

// CatalogName is the document holding the year catalog.
const CatalogName = "catalog_year_diseases.json"

// ErrUnsafeName is returned for a document name that would escape the
// destination, i.e. one containing a path separator or NUL.
var ErrUnsafeName = errors.New("unsafe document name")

// Publisher writes documents to a Sink, announcing each one on Progress
// before it is written.
type Publisher struct {
	Sink     storage.Sink
	Progress io.Writer

	// Job and Kind label the document metrics.
	Job  string
	Kind string

	// ASCII escapes non-ASCII text in every document.
	ASCII bool
}

// DocumentName maps a partition value to its document name.
func DocumentName(value any) (string, error) {
	base := records.Text(value)
	if strings.ContainsAny(base, "/\\\x00") {
		return "", fmt.Errorf("output: %w: %q", ErrUnsafeName, base)
	}
	return base + ".json", nil
}

// Publish encodes v and puts it under name.
func (p *Publisher) Publish(ctx context.Context, name string, v any) (storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return storage.Document{}, err
	}
	body, err := Encode(v)
	if err != nil {
		return storage.Document{}, err
	}
	if p.ASCII {
		body = EscapeNonASCII(body)
	}
	doc := storage.Document{Name: name, Body: body, Checksum: xxh3.Hash(body)}

	if p.Progress != nil {
		fmt.Fprintf(p.Progress, "writing %s xxh3=%s\n", p.Sink.Location(name), doc.ChecksumHex())
	}
	if err := p.Sink.Put(ctx, doc); err != nil {
		return doc, err
	}
	metrics.RecordDocument(p.Job, p.Kind, len(body))
	return doc, nil
}

// PublishSplit writes one document per partition in order, then the
// catalog. All names are checked before anything is written. A failure
// midway leaves the documents already written in place.
func (p *Publisher) PublishSplit(ctx context.Context, parts []*group.Partition, catalog []*group.CatalogEntry) (int, error) {
	names := make([]string, len(parts))
	for i, part := range parts {
		name, err := DocumentName(part.Value)
		if err != nil {
			return 0, err
		}
		names[i] = name
	}

	written := 0
	for i, part := range parts {
		if _, err := p.Publish(ctx, names[i], part.Records); err != nil {
			return written, err
		}
		written++
	}
	if catalog == nil {
		catalog = []*group.CatalogEntry{}
	}
	if _, err := p.Publish(ctx, CatalogName, catalog); err != nil {
		return written, err
	}
	return written + 1, nil
}
