// Package module mounts the meta endpoints
package module

import (
	"context"
	"time"

	modkit "feedvault/internal/modkit"
	"feedvault/internal/modkit/httpkit"
	metahttp "feedvault/internal/services/meta/http"
)

// Module serves health, readiness and version under /meta
type Module struct {
	modkit.Built
	deps metahttp.Deps
}

// New reports readiness for whichever sql backends deps carries
func New(deps modkit.Deps, service string, opts ...modkit.Option) *Module {
	checks := []metahttp.Check{
		{Name: "pg", Probe: probeOf(deps.PG)},
		{Name: "sqlite", Probe: probeOf(deps.SQLite)},
	}
	return &Module{
		Built: modkit.Build(append([]modkit.Option{modkit.WithName("meta"), modkit.WithPrefix("/meta")}, opts...)...),
		deps:  metahttp.Deps{ServiceName: service, StartedAt: time.Now(), Checks: checks},
	}
}

// MountRoutes attaches the meta routes under Prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.Mount(r, func(sub httpkit.Router) { metahttp.Register(sub, m.deps) })
}

// probeOf is nil for an unconfigured or unpingable backend, which /ready reports as skipped
func probeOf(db any) metahttp.Probe {
	if p, ok := db.(interface{ Ping(context.Context) error }); ok {
		return p.Ping
	}
	return nil
}

// Ports is nil; meta exposes nothing to other modules
func (m *Module) Ports() any { return nil }
