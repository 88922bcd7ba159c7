// Package pg opens the pgx pool behind the store seam
package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feedvault/internal/platform/store/trace"
)

// Config configures the pool
type Config struct {
	URL      string
	MaxConns int32
	AppName  string
	SlowMs   int
	// Tracer receives every statement through pgx's QueryTracer hook; nil disables
	Tracer trace.Tracer
}

// PG owns the pool
type PG struct {
	Pool *pgxpool.Pool
}

var newPool = pgxpool.NewWithConfig

// Open parses cfg.URL and builds the pool; connections are made lazily
func Open(ctx context.Context, cfg Config) (*PG, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.AppName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	}
	if cfg.Tracer != nil {
		pc.ConnConfig.Tracer = &queryTracer{to: cfg.Tracer, slowMs: cfg.SlowMs}
	}
	pool, err := newPool(ctx, pc)
	if err != nil {
		return nil, err
	}
	return &PG{Pool: pool}, nil
}

// Close closes the pool; safe on nil
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

type startKey struct{}

type started struct {
	at   time.Time
	sql  string
	args []any
}

// queryTracer bridges pgx.QueryTracer to trace.Tracer
type queryTracer struct {
	to     trace.Tracer
	slowMs int
}

func (q *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, startKey{}, started{at: time.Now(), sql: d.SQL, args: d.Args})
}

func (q *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryEndData) {
	s, ok := ctx.Value(startKey{}).(started)
	if !ok {
		return
	}
	err := d.Err
	if err == pgx.ErrNoRows {
		err = nil
	}
	took := time.Since(s.at)
	q.to.OnQuery(ctx, trace.Event{SQL: s.sql, Args: s.args, Elapsed: took, Err: err, Slow: trace.Slow(took, q.slowMs)})
}
