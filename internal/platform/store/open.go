package store

import (
	"context"
	"fmt"
	"time"

	"feedvault/internal/platform/logger"
	"feedvault/internal/platform/store/pg"
	"feedvault/internal/platform/store/sqlite"
	"feedvault/internal/platform/store/trace"
)

// openPG returns the adapter only once the pool answers a ping
// The ping is retried with doubling backoff capped at 2s, so the API can start alongside its database.
func openPG(ctx context.Context, cfg Config, log logger.Logger) (*pgAdapter, error) {
	var tr trace.Tracer
	if cfg.PG.LogSQL {
		tr = trace.Zerolog(log, "pg")
	}
	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		AppName:  cfg.AppName,
		SlowMs:   cfg.PG.SlowQueryMs,
		Tracer:   tr,
	})
	if err != nil {
		return nil, err
	}

	attempts := cfg.PG.ConnectRetries
	if attempts <= 0 {
		attempts = 20
	}
	timeout := cfg.PG.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	wait := 150 * time.Millisecond
	for i := 1; ; i++ {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err = p.Pool.Ping(pctx)
		cancel()
		if err == nil {
			return &pgAdapter{pool: p}, nil
		}
		if i == attempts {
			break
		}
		log.Warn().Err(err).Int("attempt", i).Dur("retry_in", wait).Msg("postgres not ready")
		select {
		case <-ctx.Done():
			p.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait = min(2*wait, 2*time.Second)
	}
	p.Close()
	return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, err)
}

func openSQLite(ctx context.Context, cfg SQLiteConfig, log logger.Logger) (*sqliteAdapter, error) {
	var tr trace.Tracer
	if cfg.LogSQL {
		tr = trace.Zerolog(log, "sqlite")
	}
	d, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Path, BusyTimeoutMs: cfg.BusyTimeoutMs})
	if err != nil {
		return nil, err
	}
	return &sqliteAdapter{d: d, trace: timing{tracer: tr, slowMs: cfg.SlowQueryMs}}, nil
}
