// Package store opens the sql backends and hides them behind one querier seam
//
// Postgres runs on pgx/pgxpool, SQLite on the pure Go modernc driver. Repos see
// only Querier and TxRunner; the placeholder style ($1 vs ?) stays their concern.
package store

import (
	"context"
	"errors"
	"time"

	"feedvault/internal/platform/logger"
)

// Row is a single result awaiting Scan
type Row interface {
	Scan(dest ...any) error
}

// Rows is a result set; Close must be called
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports what a write touched
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// Querier runs statements on a pool or inside a transaction
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner is a Querier that can also run fn in one transaction
// fn returning an error rolls the transaction back.
type TxRunner interface {
	Querier
	Tx(ctx context.Context, fn func(q Querier) error) error
}

// Config selects and tunes the backends
type Config struct {
	// AppName is reported to postgres as application_name
	AppName string

	PG     PGConfig
	SQLite SQLiteConfig
}

// PGConfig configures the pgx pool
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	ConnectRetries int           // 0 means 20
	PingTimeout    time.Duration // 0 means 3s
}

// SQLiteConfig configures the embedded database file
type SQLiteConfig struct {
	Enabled       bool
	Path          string
	BusyTimeoutMs int
	LogSQL        bool
	SlowQueryMs   int
}

// Store holds whichever backends Open enabled; the others stay nil
type Store struct {
	Log    logger.Logger
	PG     TxRunner
	SQLite TxRunner
}

// Option adjusts the Store before backends open
type Option func(*Store)

// WithLogger sets the logger SQL tracing writes to
func WithLogger(l logger.Logger) Option { return func(s *Store) { s.Log = l } }

// Open opens every enabled backend; on failure nothing is left open
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{Log: *logger.Named("store")}
	for _, o := range opts {
		o(s)
	}

	if cfg.PG.Enabled {
		pg, err := openPG(ctx, cfg, s.Log)
		if err != nil {
			return nil, err
		}
		s.PG = pg
	}
	if cfg.SQLite.Enabled {
		lite, err := openSQLite(ctx, cfg.SQLite, s.Log)
		if err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		s.SQLite = lite
	}
	return s, nil
}

// Close releases every open backend
func (s *Store) Close(context.Context) error {
	var errs []error
	for _, b := range []TxRunner{s.SQLite, s.PG} {
		if c, ok := b.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
