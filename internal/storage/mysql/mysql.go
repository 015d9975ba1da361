// Package mysql stores documents in a MySQL table using go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"csv2json/internal/storage"
)

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(ctx, cfg)
	})
}

// Sink upserts documents into a table keyed by name.
type Sink struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

var _ storage.Sink = (*Sink)(nil)

// parseDSN validates dsn and turns on the options the sink relies on.
func parseDSN(dsn string) (*mysql.Config, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: dsn: %w", err)
	}
	mc.ParseTime = true
	if mc.Params == nil {
		mc.Params = map[string]string{}
	}
	if _, ok := mc.Params["charset"]; !ok {
		mc.Params["charset"] = "utf8mb4"
	}
	return mc, nil
}

// New opens a connection described by cfg.DSN, e.g.
// "user:pass@tcp(localhost:3306)/reports".
func New(ctx context.Context, cfg storage.Config) (*Sink, error) {
	if err := storage.CheckTable(cfg.Table); err != nil {
		return nil, err
	}
	mc, err := parseDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(conn)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}

	s := &Sink{db: db, table: cfg.Table, now: time.Now}
	if cfg.AutoCreateTable {
		if _, err := db.ExecContext(ctx, createSQL(quote(cfg.Table))); err != nil {
			db.Close()
			return nil, fmt.Errorf("mysql: create table %s: %w", cfg.Table, err)
		}
	}
	return s, nil
}

// quote backtick-quotes each part of a possibly schema-qualified name.
func quote(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "`" + p + "`"
	}
	return strings.Join(parts, ".")
}

func createSQL(table string) string {
	return "CREATE TABLE IF NOT EXISTS " + table + ` (
	name       VARCHAR(255) NOT NULL PRIMARY KEY,
	body       LONGTEXT NOT NULL,
	checksum   CHAR(16) NOT NULL,
	updated_at DATETIME(6) NOT NULL
) DEFAULT CHARSET = utf8mb4`
}

func upsertSQL(table string) string {
	return "INSERT INTO " + table + ` (name, body, checksum, updated_at) VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE body = VALUES(body), checksum = VALUES(checksum), updated_at = VALUES(updated_at)`
}

// Location returns "mysql:<table>/<name>".
func (s *Sink) Location(name string) string { return "mysql:" + s.table + "/" + name }

// Put inserts or replaces the row for doc.Name.
func (s *Sink) Put(ctx context.Context, doc storage.Document) error {
	_, err := s.db.ExecContext(ctx, upsertSQL(quote(s.table)),
		doc.Name, string(doc.Body), doc.ChecksumHex(), s.now().UTC())
	if err != nil {
		return fmt.Errorf("mysql: upsert %s: %w", doc.Name, err)
	}
	return nil
}

// Close closes the database handle.
func (s *Sink) Close() error { return s.db.Close() }
