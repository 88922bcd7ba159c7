// Package api composes the HTTP API from the archive and meta modules
package api

import (
	"context"
	"time"

	"feedvault/internal/platform/config"
	"feedvault/internal/platform/logger"
	phttp "feedvault/internal/platform/net/http"
	"feedvault/internal/platform/store"

	"feedvault/internal/modkit"
	"feedvault/internal/modkit/httpkit"
	"feedvault/internal/modkit/module"
	"feedvault/internal/modkit/swaggerkit"

	archivemod "feedvault/internal/services/archive/module"
	metamod "feedvault/internal/services/meta/module"
)

// ServiceName is reported by the meta endpoints
const ServiceName = "feedvault-api"

// Options are the API options
type Options struct {
	Config         config.Conf // root config, unprefixed
	Archive        archivemod.Options
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
	CORSOrigins    []string
	Slow           time.Duration
	// RequestTimeout never undercuts the archive call timeout
	RequestTimeout time.Duration
	MaxInflight    int
}

// Mount builds every module and mounts it under /api/v1
func Mount(ctx context.Context, r phttp.Router, opt Options) error {
	deps := modkit.Deps{
		Cfg:    opt.Config,
		PG:     opt.Store.PG,
		SQLite: opt.Store.SQLite,
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	archive, err := archivemod.New(ctx, deps, opt.Archive)
	if err != nil {
		return err
	}
	mods := []module.Module{
		metamod.New(deps, ServiceName),
		archive,
	}

	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	stack := httpkit.CommonStack(httpkit.StackOptions{
		CORSOrigins: opt.CORSOrigins,
		Slow:        opt.Slow,
		Timeout:     max(opt.RequestTimeout, opt.Archive.CallTimeout),
		MaxInflight: opt.MaxInflight,
	})
	httpkit.MountAPI(r, "v1", stack, func(api httpkit.Router) {
		for _, m := range mods {
			// register each module's ports under its own name for cross-module lookups
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
	})
	return nil
}
