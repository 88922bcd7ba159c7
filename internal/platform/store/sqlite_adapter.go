package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	perr "feedvault/internal/platform/errors"
	"feedvault/internal/platform/store/sqlite"
	"feedvault/internal/platform/store/trace"
)

// busyAttempts bounds how often Tx reruns a unit that hit SQLITE_BUSY
const busyAttempts = 3

// timing reports each statement to an optional tracer
type timing struct {
	tracer trace.Tracer
	slowMs int
}

func (t timing) done(ctx context.Context, q string, args []any, start time.Time, err error) {
	if t.tracer == nil {
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	took := time.Since(start)
	t.tracer.OnQuery(ctx, trace.Event{SQL: q, Args: args, Elapsed: took, Err: err, Slow: trace.Slow(took, t.slowMs)})
}

type sqliteAdapter struct {
	d     *sqlite.DB
	trace timing
}

// SQLiteMemory is a private in-memory database behind the TxRunner seam, closed when t ends
func SQLiteMemory(t testing.TB) TxRunner {
	t.Helper()
	return &sqliteAdapter{d: sqlite.OpenMemory(t)}
}

func (a *sqliteAdapter) q(c sqlConn) sqlQuerier { return sqlQuerier{c: c, trace: a.trace} }

func (a *sqliteAdapter) Exec(ctx context.Context, q string, args ...any) (CommandTag, error) {
	return a.q(a.d.SQL).Exec(ctx, q, args...)
}

func (a *sqliteAdapter) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	return a.q(a.d.SQL).Query(ctx, q, args...)
}

func (a *sqliteAdapter) QueryRow(ctx context.Context, q string, args ...any) Row {
	return a.q(a.d.SQL).QueryRow(ctx, q, args...)
}

// Tx reruns fn from scratch when sqlite reports busy, waiting 100ms then 200ms
func (a *sqliteAdapter) Tx(ctx context.Context, fn func(Querier) error) error {
	var err error
	for i := range busyAttempts {
		if err = a.tx(ctx, fn); err == nil || !perr.IsBusy(err) || i == busyAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
		}
	}
	return err
}

func (a *sqliteAdapter) tx(ctx context.Context, fn func(Querier) error) error {
	tx, err := a.d.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(a.q(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Ping lets the readiness probe reach the database
func (a *sqliteAdapter) Ping(ctx context.Context) error { return a.d.SQL.PingContext(ctx) }

func (a *sqliteAdapter) Close() error { return a.d.Close() }

// sqlConn is what *sql.DB and *sql.Tx have in common
type sqlConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlQuerier struct {
	c     sqlConn
	trace timing
}

func (x sqlQuerier) Exec(ctx context.Context, q string, args ...any) (CommandTag, error) {
	start := time.Now()
	res, err := x.c.ExecContext(ctx, q, args...)
	x.trace.done(ctx, q, args, start, err)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	return rowsAffected(n), nil
}

func (x sqlQuerier) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := x.c.QueryContext(ctx, q, args...)
	x.trace.done(ctx, q, args, start, err)
	if err != nil {
		return nil, err
	}
	return sqlRows{rs}, nil
}

// QueryRow traces once the row is scanned, when its error is known
func (x sqlQuerier) QueryRow(ctx context.Context, q string, args ...any) Row {
	start := time.Now()
	return tracedRow{r: x.c.QueryRowContext(ctx, q, args...), done: func(err error) {
		x.trace.done(ctx, q, args, start, err)
	}}
}

type tracedRow struct {
	r    *sql.Row
	done func(error)
}

func (t tracedRow) Scan(dest ...any) error {
	err := t.r.Scan(dest...)
	t.done(err)
	return err
}

type sqlRows struct{ *sql.Rows }

func (r sqlRows) Close() { _ = r.Rows.Close() }

func (r sqlRows) Columns() []string {
	cols, _ := r.Rows.Columns()
	return cols
}

// rowsAffected stands in for a pg command tag
type rowsAffected int64

func (n rowsAffected) String() string { return fmt.Sprintf("ROWS %d", n) }

func (n rowsAffected) RowsAffected() int64 { return int64(n) }
