// Package mssql stores documents in a SQL Server table using go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"csv2json/internal/storage"
)

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(ctx, cfg)
	})
}

// Sink merges documents into a table keyed by name.
type Sink struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

var _ storage.Sink = (*Sink)(nil)

// New validates cfg.DSN, opens the connection and verifies connectivity.
func New(ctx context.Context, cfg storage.Config) (*Sink, error) {
	if err := storage.CheckTable(cfg.Table); err != nil {
		return nil, err
	}
	// Fail fast on obvious DSN mistakes before dialing.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mssql: dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}

	s := &Sink{db: db, table: cfg.Table, now: time.Now}
	if cfg.AutoCreateTable {
		if _, err := db.ExecContext(ctx, createSQL(cfg.Table)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("mssql: create table %s: %w", cfg.Table, err)
		}
	}
	return s, nil
}

// quote bracket-quotes each part of a possibly schema-qualified name.
func quote(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "[" + p + "]"
	}
	return strings.Join(parts, ".")
}

func createSQL(table string) string {
	return "IF OBJECT_ID(N'" + table + "', N'U') IS NULL CREATE TABLE " + quote(table) + ` (
	name       NVARCHAR(450) NOT NULL PRIMARY KEY,
	body       NVARCHAR(MAX) NOT NULL,
	checksum   CHAR(16) NOT NULL,
	updated_at DATETIME2 NOT NULL
)`
}

func mergeSQL(table string) string {
	return "MERGE " + quote(table) + ` AS t
USING (SELECT @p1 AS name, @p2 AS body, @p3 AS checksum, @p4 AS updated_at) AS s
ON t.name = s.name
WHEN MATCHED THEN UPDATE SET body = s.body, checksum = s.checksum, updated_at = s.updated_at
WHEN NOT MATCHED THEN INSERT (name, body, checksum, updated_at) VALUES (s.name, s.body, s.checksum, s.updated_at);`
}

// Location returns "mssql:<table>/<name>".
func (s *Sink) Location(name string) string { return "mssql:" + s.table + "/" + name }

// Put merges the row for doc.Name.
func (s *Sink) Put(ctx context.Context, doc storage.Document) error {
	_, err := s.db.ExecContext(ctx, mergeSQL(s.table),
		doc.Name, string(doc.Body), mssql.VarChar(doc.ChecksumHex()), s.now().UTC())
	if err != nil {
		return fmt.Errorf("mssql: merge %s: %w", doc.Name, err)
	}
	return nil
}

// Close closes the database handle.
func (s *Sink) Close() error { return s.db.Close() }
