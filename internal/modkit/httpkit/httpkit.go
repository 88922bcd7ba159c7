// Package httpkit is the routing surface modules build on; it re-exports the platform http types
// so module code never imports internal/platform/net/http directly
package httpkit

import (
	"compress/flate"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	phttp "feedvault/internal/platform/net/http"
	"feedvault/internal/platform/net/middleware"
)

type (
	// Router is the platform router seam
	Router = phttp.Router
	// Handler is the platform handler shape
	Handler = phttp.Handler
	// Response is what return style handlers produce
	Response = phttp.Response
	// Envelope wraps every response body
	Envelope = phttp.Envelope
)

// OK is a 200 with data
func OK(data any) Response { return phttp.OK(data) }

// Error renders err as an error envelope
func Error(err error) Response { return phttp.Error(err) }

// PostJSON mounts a handler fed by a decoded and validated T body
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, phttp.JSONHandler(h))
}

// Get mounts a body-less handler
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.Call(h))
}

// MountAPI scopes mount under /api/{version} behind mw
func MountAPI(r Router, version string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route("/api/"+strings.Trim(version, "/"), func(api Router) {
		api.Use(mw...)
		mount(api)
	})
}

// StackOptions tunes CommonStack
type StackOptions struct {
	CORSOrigins []string
	// Slow marks access log lines at warn level, 0 disables
	Slow time.Duration
	// Timeout bounds every request, 0 means 30s
	Timeout time.Duration
	// MaxInflight caps concurrent requests, 0 leaves them uncapped
	MaxInflight int
}

// CommonStack is the middleware every API route runs behind
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return []func(http.Handler) http.Handler{
		chimw.RequestID,
		chimw.RealIP,
		middleware.Recover,
		chimw.NoCache,
		middleware.AccessLog(o.Slow),
		middleware.CORS(o.CORSOrigins),
		middleware.Throttle(o.MaxInflight, o.MaxInflight, o.Timeout),
		chimw.Compress(flate.BestSpeed),
		chimw.StripSlashes,
		chimw.Timeout(o.Timeout),
	}
}
