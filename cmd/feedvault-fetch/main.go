// Command feedvault-fetch fills archive coverage for identities and writes their posts as JSON lines
//
//	feedvault-fetch -identities jack,@dorsey -start 2024-01-01 -end 2024-01-31 [-offline] [-out posts.jsonl]
//
// Exit status is 1 on bad input or setup failure and 2 when some gaps could not be covered
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"feedvault/internal/adapters/resolve"
	"feedvault/internal/adapters/source/jsonl"
	"feedvault/internal/core/interval"
	"feedvault/internal/modkit"
	"feedvault/internal/platform/config"
	"feedvault/internal/platform/logger"
	"feedvault/internal/platform/store"
	pstrings "feedvault/internal/platform/strings"
	"feedvault/internal/services/archive/domain"
	archivemod "feedvault/internal/services/archive/module"
)

const (
	exitOK      = 0
	exitSetup   = 1
	exitPartial = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	l := logger.Named("fetch")

	fs := flag.NewFlagSet("feedvault-fetch", flag.ContinueOnError)
	var (
		fIdentities = fs.String("identities", "", "comma separated handles or profile urls")
		fStart      = fs.String("start", "", "first UTC day YYYY-MM-DD")
		fEnd        = fs.String("end", "", "last UTC day YYYY-MM-DD inclusive")
		fOffline    = fs.Bool("offline", false, "read stored posts only, never contact the source")
		fOut        = fs.String("out", "-", "output file, - for stdout")
	)
	if err := fs.Parse(args); err != nil {
		return exitSetup
	}

	ids, err := resolve.New().ResolveAll(pstrings.SplitCSV(*fIdentities))
	if err != nil || len(ids) == 0 {
		l.Error().Err(err).Str("identities", *fIdentities).Msg("need at least one valid -identities entry")
		return exitSetup
	}
	iv, err := interval.Parse(*fStart, *fEnd)
	if err != nil {
		l.Error().Err(err).Msg("bad -start/-end")
		return exitSetup
	}

	root := config.New()
	opts := archivemod.FromConfig(root)
	st, err := store.Open(ctx, archivemod.StoreConfig(root, opts), store.WithLogger(*l))
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return exitSetup
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	m, err := archivemod.New(ctx, modkit.Deps{Cfg: root, PG: st.PG, SQLite: st.SQLite, Log: *l}, opts)
	if err != nil {
		l.Error().Err(err).Msg("archive setup failed")
		return exitSetup
	}
	svc := m.Ports().(archivemod.Ports).Service

	code := exitOK
	var posts []domain.Post
	if *fOffline {
		posts, err = svc.GetPosts(ctx, ids, iv.Start, iv.End)
		if err != nil {
			l.Error().Err(err).Msg("query failed")
			return exitSetup
		}
	} else {
		got, failures, err := svc.EnsureAndGetPosts(ctx, ids, iv.Start, iv.End)
		if err != nil {
			l.Error().Err(err).Msg("ensure failed")
			return exitSetup
		}
		for _, f := range failures {
			l.Warn().
				Str("identity", f.Identity).
				Str("gap", f.Interval.String()).
				Str("kind", string(f.Kind)).
				Str("reason", f.Reason).
				Msg("gap not covered")
		}
		if len(failures) > 0 {
			code = exitPartial
		}
		posts = got
	}

	if err := writeOut(*fOut, stdout, posts); err != nil {
		l.Error().Err(err).Str("out", *fOut).Msg("write failed")
		return exitSetup
	}
	l.Info().
		Strs("identities", ids).
		Str("range", iv.String()).
		Int("posts", len(posts)).
		Bool("offline", *fOffline).
		Msg("done")
	return code
}

func writeOut(path string, stdout io.Writer, posts []domain.Post) error {
	if path == "" || path == "-" {
		return jsonl.Write(stdout, posts)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jsonl.Write(f, posts); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
