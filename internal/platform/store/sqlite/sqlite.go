// Package sqlite opens an embedded database on the pure Go modernc driver
//
// Pragmas travel in the DSN (_pragma=name(value)) so every pooled connection
// gets them, not just the first:
//
//	foreign_keys = 1
//	busy_timeout = 10000 unless configured
//	synchronous  = NORMAL unless configured
//	journal_mode = WAL   (files only)
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// Memory opens a private in-memory database
const Memory = ":memory:"

// Config names the database file and tunes it
type Config struct {
	Path          string
	BusyTimeoutMs int
	Synchronous   string
	MaxOpenConns  int
}

// DB wraps the database/sql handle
type DB struct {
	SQL *sql.DB
}

var sqlOpen = sql.Open

// DSN renders cfg as a modernc connection string
func DSN(cfg Config) string {
	busy := cfg.BusyTimeoutMs
	if busy <= 0 {
		busy = 10_000
	}
	sync := cfg.Synchronous
	if sync == "" {
		sync = "NORMAL"
	}
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
	q.Add("_pragma", "synchronous("+sync+")")
	if cfg.Path != Memory {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	return cfg.Path + "?" + q.Encode()
}

// Open creates the parent directory if needed, opens the file and pings it
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: empty path")
	}
	if cfg.Path != Memory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}
	db, err := sqlOpen("sqlite", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	switch {
	case cfg.Path == Memory:
		// every connection to :memory: would be its own database
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &DB{SQL: db}, nil
}

// OpenMemory opens an in-memory database closed when t ends
func OpenMemory(t testing.TB) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Path: Memory})
	if err != nil {
		t.Fatalf("sqlite.OpenMemory: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Close closes the handle; safe on nil
func (d *DB) Close() error {
	if d == nil || d.SQL == nil {
		return nil
	}
	return d.SQL.Close()
}
