// Package trace is the query tracing seam both sql backends report to
package trace

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"feedvault/internal/platform/logger"
)

// Event is one executed statement
type Event struct {
	SQL     string
	Args    any
	Elapsed time.Duration
	Err     error
	Slow    bool
}

// Tracer receives an Event after each statement
type Tracer interface {
	OnQuery(ctx context.Context, ev Event)
}

// Zerolog logs every statement at info, slow ones at warn, whatever the root level
func Zerolog(root logger.Logger, component string) Tracer {
	return zl{
		log: root.Level(zerolog.DebugLevel).With().Str("component", component).Logger(),
		msg: component + " query",
	}
}

type zl struct {
	log logger.Logger
	msg string
}

func (z zl) OnQuery(ctx context.Context, ev Event) {
	evt := z.log.Info()
	if ev.Slow {
		evt = z.log.Warn()
	}
	if id := logger.RunID(ctx); id != "" {
		evt = evt.Str("run_id", id)
	}
	evt.Dur("elapsed", ev.Elapsed).
		Bool("slow", ev.Slow).
		Str("sql", Compact(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg(z.msg)
}

// Slow reports whether elapsed reaches slowMs; a negative threshold disables it
func Slow(elapsed time.Duration, slowMs int) bool {
	return slowMs >= 0 && elapsed >= time.Duration(slowMs)*time.Millisecond
}

// Compact puts a statement on one line with single spaces
func Compact(sql string) string { return strings.Join(strings.Fields(sql), " ") }
