package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"feedvault/internal/platform/store/pg"
)

// pgxConn is what pgxpool.Pool and pgx.Tx have in common
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxQuerier adapts a pool or a transaction; tracing happens inside pgx
type pgxQuerier struct{ c pgxConn }

func (q pgxQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return q.c.Exec(ctx, sql, args...)
}

func (q pgxQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := q.c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgxRows{rs}, nil
}

func (q pgxQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return q.c.QueryRow(ctx, sql, args...)
}

type pgxRows struct{ pgx.Rows }

func (r pgxRows) Columns() []string {
	fds := r.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	return cols
}

type pgAdapter struct{ pool *pg.PG }

func (a *pgAdapter) q() pgxQuerier { return pgxQuerier{a.pool.Pool} }

func (a *pgAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return a.q().Exec(ctx, sql, args...)
}

func (a *pgAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return a.q().Query(ctx, sql, args...)
}

func (a *pgAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return a.q().QueryRow(ctx, sql, args...)
}

func (a *pgAdapter) Tx(ctx context.Context, fn func(Querier) error) error {
	return pgx.BeginFunc(ctx, a.pool.Pool, func(tx pgx.Tx) error { return fn(pgxQuerier{tx}) })
}

// Ping lets the readiness probe reach the pool
func (a *pgAdapter) Ping(ctx context.Context) error { return a.pool.Pool.Ping(ctx) }

func (a *pgAdapter) Close() error {
	a.pool.Close()
	return nil
}
