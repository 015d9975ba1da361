// Package storage defines where rendered JSON documents go.
//
// A Sink receives whole documents by name. Concrete backends live in
// subpackages and register a Factory for their kind from init; importing
// csv2json/internal/storage/all enables every built-in backend.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Document is one rendered output file.
type Document struct {
	// Name is the file name, e.g. "2010.json".
	Name string
	// Body is the complete JSON text.
	Body []byte
	// Checksum is the xxh3 hash of Body.
	Checksum uint64
}

// ChecksumHex renders the checksum the way backends store it.
func (d Document) ChecksumHex() string { return fmt.Sprintf("%016x", d.Checksum) }

// Sink persists documents. Put with an existing name replaces the previous
// body.
type Sink interface {
	Put(ctx context.Context, doc Document) error
	// Location describes where a document of the given name ends up. It is
	// used for progress output only.
	Location(name string) string
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Kind            string
	Dir             string
	DSN             string
	Table           string
	AutoCreateTable bool
}

// Factory opens a Sink for cfg.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Backends call it from init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// Kinds lists the registered backend kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens the Sink registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Sink, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown kind %q (registered: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return f(ctx, cfg)
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// CheckTable rejects table names that are not a plain or schema-qualified
// identifier. Backends interpolate the name into SQL after this check.
func CheckTable(name string) error {
	if !tableName.MatchString(name) {
		return fmt.Errorf("storage: invalid table name %q", name)
	}
	return nil
}
