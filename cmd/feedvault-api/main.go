// @title         feedvault API
// @version       0.1.0
// @description   Coverage aware post archive

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"feedvault/internal/platform/config"
	"feedvault/internal/platform/logger"
	phttp "feedvault/internal/platform/net/http"
	"feedvault/internal/platform/store"

	"feedvault/internal/services/api"
	archivemod "feedvault/internal/services/archive/module"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	l := logger.Get()

	archiveOpts := archivemod.FromConfig(root)
	st, err := store.Open(ctx, archivemod.StoreConfig(root, archiveOpts), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	srv := phttp.NewServer(apiCfg)

	err = api.Mount(ctx, srv.Router(), api.Options{
		Config:         root,
		Archive:        archiveOpts,
		Store:          st,
		Logger:         l,
		EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
		CORSOrigins:    apiCfg.MayCSV("CORS_ORIGINS", nil),
		Slow:           time.Duration(apiCfg.MayInt("SLOW_MS", 1000)) * time.Millisecond,
		RequestTimeout: apiCfg.MayDuration("REQUEST_TIMEOUT", 30*time.Second),
		MaxInflight:    apiCfg.MayInt("MAX_INFLIGHT", 0),
	})
	if err != nil {
		l.Panic().Err(err).Msg("api.Mount failed")
	}

	if err := srv.Run(ctx); err != nil {
		l.Error().Err(err).Msg("http server stopped")
	}
}
