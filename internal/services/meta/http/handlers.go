// Package http serves liveness, readiness and build info
package http

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"feedvault/internal/core/version"
	"feedvault/internal/modkit/httpkit"
	phttp "feedvault/internal/platform/net/http"
)

// Probe reports whether one dependency answers
type Probe func(context.Context) error

// Check names a dependency for /ready; a nil Probe means it is not configured
type Check struct {
	Name  string
	Probe Probe
}

// Deps feed the meta handlers
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Checks      []Check
	// ProbeTimeout bounds all checks together, 0 means 2s
	ProbeTimeout time.Duration
}

type meta struct {
	Deps
	now func() time.Time
}

// Register mounts /health, /ready and /version on r
func Register(r httpkit.Router, d Deps) {
	if d.ProbeTimeout <= 0 {
		d.ProbeTimeout = 2 * time.Second
	}
	m := &meta{Deps: d, now: time.Now}
	httpkit.Get(r, "/health", m.health)
	httpkit.Get(r, "/ready", m.ready)
	httpkit.Get(r, "/version", m.version)
}

// Liveness is the /health payload
type Liveness struct {
	OK            bool   `json:"ok"`
	Service       string `json:"service"`
	Started       string `json:"started"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// CheckResult is one dependency as /ready saw it: ok, fail or skipped
type CheckResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	TookMs int64  `json:"took_ms"`
}

// Readiness is the /ready payload
// Status is ok, degraded when nothing could be probed, or fail.
type Readiness struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks"`
	At     string        `json:"at"`
}

// @Summary Liveness
// @Tags Meta
// @Produce json
// @Success 200 {object} Liveness
// @Router /meta/health [get]
func (m *meta) health(*http.Request) (any, error) {
	return Liveness{
		OK:            true,
		Service:       m.ServiceName,
		Started:       m.StartedAt.UTC().Format(time.RFC3339),
		UptimeSeconds: int64(m.now().Sub(m.StartedAt).Seconds()),
	}, nil
}

// @Summary Readiness, probing every configured store in parallel
// @Tags Meta
// @Produce json
// @Success 200 {object} Readiness
// @Failure 503 {object} Readiness
// @Router /meta/ready [get]
func (m *meta) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), m.ProbeTimeout)
	defer cancel()

	res := make([]CheckResult, len(m.Checks))
	var g errgroup.Group
	for i, c := range m.Checks {
		res[i] = CheckResult{Name: c.Name, Status: "skipped"}
		if c.Probe == nil {
			continue
		}
		g.Go(func() error {
			start := time.Now()
			err := c.Probe(ctx)
			res[i].TookMs = time.Since(start).Milliseconds()
			res[i].Status = "ok"
			if err != nil {
				res[i].Status, res[i].Error = "fail", err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	out := Readiness{Status: "degraded", Checks: res, At: m.now().UTC().Format(time.RFC3339)}
	for _, c := range res {
		if c.Status == "fail" {
			out.Status = "fail"
			return phttp.Response{Status: http.StatusServiceUnavailable, Body: out}, nil
		}
		if c.Status == "ok" {
			out.Status = "ok"
		}
	}
	return out, nil
}

// @Summary Build info
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo
// @Router /meta/version [get]
func (m *meta) version(*http.Request) (any, error) {
	return version.Info(m.ServiceName), nil
}
