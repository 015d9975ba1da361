// Package postgres stores documents in a Postgres table through a pgx v5
// connection pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"csv2json/internal/storage"
)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(ctx, cfg)
	})
}

// Sink upserts documents into a table keyed by name.
type Sink struct {
	pool  *pgxpool.Pool
	table string
	fqn   string
}

var _ storage.Sink = (*Sink)(nil)

// New parses cfg.DSN, opens a pool and verifies connectivity.
func New(ctx context.Context, cfg storage.Config) (*Sink, error) {
	if err := storage.CheckTable(cfg.Table); err != nil {
		return nil, err
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Sink{pool: pool, table: cfg.Table, fqn: quoteFQN(cfg.Table)}
	if cfg.AutoCreateTable {
		if _, err := pool.Exec(ctx, createSQL(s.fqn)); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: create table %s: %w", cfg.Table, err)
		}
	}
	return s, nil
}

// quoteFQN quotes a possibly schema-qualified name such as "public.docs".
func quoteFQN(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func createSQL(fqn string) string {
	return "CREATE TABLE IF NOT EXISTS " + fqn + ` (
	name       text PRIMARY KEY,
	body       text NOT NULL,
	checksum   text NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`
}

func upsertSQL(fqn string) string {
	return "INSERT INTO " + fqn + ` (name, body, checksum, updated_at) VALUES ($1, $2, $3, now())
ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, checksum = EXCLUDED.checksum, updated_at = EXCLUDED.updated_at`
}

// Location returns "postgres:<table>/<name>".
func (s *Sink) Location(name string) string { return "postgres:" + s.table + "/" + name }

// Put inserts or replaces the row for doc.Name.
func (s *Sink) Put(ctx context.Context, doc storage.Document) error {
	if _, err := s.pool.Exec(ctx, upsertSQL(s.fqn), doc.Name, string(doc.Body), doc.ChecksumHex()); err != nil {
		return fmt.Errorf("postgres: upsert %s: %w", doc.Name, err)
	}
	return nil
}

// Close releases the pool.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}
