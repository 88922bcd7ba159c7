// Package modkit assembles API modules from shared deps and build options
package modkit

import (
	"net/http"
	"slices"

	"feedvault/internal/modkit/httpkit"
	"feedvault/internal/modkit/repokit"
	"feedvault/internal/platform/config"
	"feedvault/internal/platform/logger"
	str "feedvault/internal/platform/strings"
)

// Deps are the shared seams handed to every module
// A nil store seam means that backend is not configured.
type Deps struct {
	Log    logger.Logger
	Cfg    config.Conf
	PG     repokit.TxRunner
	SQLite repokit.TxRunner
}

// Option adjusts a module while it is built
type Option func(*Built)

// WithName names the module in logs and in the ports registry
func WithName(name string) Option { return func(b *Built) { b.name = name } }

// WithPrefix sets the path the module mounts under
func WithPrefix(prefix string) Option { return func(b *Built) { b.prefix = prefix } }

// WithMiddlewares appends per module middleware, applied in order
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) { b.mw = append(b.mw, mw...) }
}

// WithSubrouter wraps the module router before routes are attached
func WithSubrouter(fn func(httpkit.Router) httpkit.Router) Option {
	return func(b *Built) { b.subrouter = fn }
}

// WithRegister attaches extra routes after the module's own
func WithRegister(fn func(httpkit.Router)) Option { return func(b *Built) { b.extra = fn } }

// Built is the resolved skeleton modules embed for Name, Prefix and Mount
type Built struct {
	name      string
	prefix    string
	mw        []func(http.Handler) http.Handler
	subrouter func(httpkit.Router) httpkit.Router
	extra     func(httpkit.Router)
}

// Build applies opts in order; later options win
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	return b
}

// Name returns the module name, panicking when none was set
func (b Built) Name() string { return str.MustString(b.name, "module name") }

// Prefix returns the normalized mount path
func (b Built) Prefix() string { return str.MustPrefix(b.prefix) }

// Middlewares returns a copy of the per module middleware
func (b Built) Middlewares() []func(http.Handler) http.Handler { return slices.Clone(b.mw) }

// Mount attaches routes under Prefix with the module middleware and hooks applied
func (b Built) Mount(r httpkit.Router, routes func(httpkit.Router)) {
	r.Route(b.Prefix(), func(sub httpkit.Router) {
		if len(b.mw) > 0 {
			sub.Use(b.mw...)
		}
		if b.subrouter != nil {
			sub = b.subrouter(sub)
		}
		routes(sub)
		if b.extra != nil {
			b.extra(sub)
		}
	})
}
