// Package sqlite stores documents as rows of a SQLite table using the pure-Go
// modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"csv2json/internal/storage"
)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(ctx, cfg)
	})
}

// Sink upserts documents into Table keyed by name.
type Sink struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

var _ storage.Sink = (*Sink)(nil)

// New opens cfg.DSN, e.g. "out.db" or "file:out.db?cache=shared", and creates
// the table when cfg.AutoCreateTable is set.
func New(ctx context.Context, cfg storage.Config) (*Sink, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if err := storage.CheckTable(cfg.Table); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s := &Sink{db: db, table: cfg.Table, now: time.Now}
	if cfg.AutoCreateTable {
		if _, err := db.ExecContext(ctx, createSQL(cfg.Table)); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: create table %s: %w", cfg.Table, err)
		}
	}
	return s, nil
}

func createSQL(table string) string {
	return "CREATE TABLE IF NOT EXISTS " + table + ` (
	name       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	checksum   TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`
}

func upsertSQL(table string) string {
	return "INSERT INTO " + table + ` (name, body, checksum, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET body = excluded.body, checksum = excluded.checksum, updated_at = excluded.updated_at`
}

// Location returns "sqlite:<table>/<name>".
func (s *Sink) Location(name string) string { return "sqlite:" + s.table + "/" + name }

// Put inserts or replaces the row for doc.Name.
func (s *Sink) Put(ctx context.Context, doc storage.Document) error {
	_, err := s.db.ExecContext(ctx, upsertSQL(s.table),
		doc.Name, string(doc.Body), doc.ChecksumHex(), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite: upsert %s: %w", doc.Name, err)
	}
	return nil
}

// Close closes the database handle.
func (s *Sink) Close() error { return s.db.Close() }
