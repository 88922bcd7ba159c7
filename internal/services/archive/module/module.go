// Package module wires the archive engine, its stores and its source into the API using modkit
package module

import (
	"context"

	"feedvault/internal/adapters/resolve"
	"feedvault/internal/adapters/source/httpsource"
	"feedvault/internal/adapters/source/jsonl"
	modkit "feedvault/internal/modkit"
	"feedvault/internal/modkit/httpkit"
	"feedvault/internal/modkit/repokit"
	perr "feedvault/internal/platform/errors"
	"feedvault/internal/services/archive/domain"
	"feedvault/internal/services/archive/guardrails"
	archivehttp "feedvault/internal/services/archive/http"
	"feedvault/internal/services/archive/manifest"
	archiverepo "feedvault/internal/services/archive/repo"
	archivesvc "feedvault/internal/services/archive/service"
)

// Module serves the archive engine under /archive
type Module struct {
	modkit.Built
	ports Ports
}

// New builds the archive: migrates the post table, loads the manifest and picks the source
// the backend named in o must be present on deps
func New(ctx context.Context, deps modkit.Deps, o Options, opts ...modkit.Option) (*Module, error) {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("archive"), modkit.WithPrefix("/archive")}, opts...)...)
	log := deps.Log.With().Str("module", "archive").Logger()

	db, dialect, tableDialect, err := pickBackend(deps, o.Backend)
	if err != nil {
		return nil, err
	}
	if o.InsertChunk > 0 {
		dialect = dialect.WithChunk(o.InsertChunk)
	}
	if err := dialect.Migrate(ctx, db); err != nil {
		return nil, err
	}

	var p manifest.Persister
	switch o.Manifest {
	case ManifestTable:
		tp := manifest.NewTable(db, tableDialect)
		if err := tp.Migrate(ctx); err != nil {
			return nil, err
		}
		p = tp
	default:
		p = manifest.NewFile(o.ManifestPath)
	}
	cov := manifest.Load(ctx, p, log)

	src, err := buildSource(o.Source)
	if err != nil {
		return nil, err
	}

	svc := archivesvc.New(db, dialect, cov, src, archivesvc.Config{
		Workers:      o.Workers,
		GapRetries:   o.GapRetries,
		RetryBase:    o.RetryBase,
		MaxRangeDays: o.MaxRangeDays,
		Timeouts: guardrails.Timeouts{
			Call:  o.CallTimeout,
			Fetch: o.FetchTimeout,
			DB:    o.DBTimeout,
		},
	})
	res := resolve.New()

	log.Info().
		Str("backend", dialect.Name()).
		Str("manifest", p.String()).
		Str("source", sourceName(o.Source)).
		Int("covered_identities", len(cov.Identities())).
		Msg("archive ready")

	return &Module{Built: b, ports: Ports{Service: adaptArchivePort{svc: svc}, Resolver: res}}, nil
}

// MountRoutes attaches the archive routes under Prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.Mount(r, func(sub httpkit.Router) { archivehttp.Register(sub, m.ports.Service, m.ports.Resolver) })
}

func pickBackend(deps modkit.Deps, backend string) (repokit.TxRunner, archiverepo.Dialect, manifest.Dialect, error) {
	switch backend {
	case BackendPostgres:
		if deps.PG == nil {
			return nil, archiverepo.Dialect{}, 0, perr.Unavailablef("archive: postgres backend selected but not configured")
		}
		return deps.PG, archiverepo.NewPG(), manifest.Postgres, nil
	case BackendSQLite, "":
		if deps.SQLite == nil {
			return nil, archiverepo.Dialect{}, 0, perr.Unavailablef("archive: sqlite backend selected but not configured")
		}
		return deps.SQLite, archiverepo.NewSQLite(), manifest.SQLite, nil
	default:
		return nil, archiverepo.Dialect{}, 0, perr.InvalidArgf("archive: unknown backend %q", backend)
	}
}

// buildSource returns nil for an empty kind, which leaves the archive read only
func buildSource(o SourceOptions) (domain.Source, error) {
	switch o.Kind {
	case "":
		return nil, nil
	case SourceHTTP:
		c, err := httpsource.New(httpsource.Options{
			BaseURL:    o.BaseURL,
			TokensCSV:  o.TokensCSV,
			Timeout:    o.Timeout,
			MaxRetries: o.MaxRetries,
			RetryBase:  o.RetryBase,
			PageSize:   o.PageSize,
			MaxPosts:   o.MaxPosts,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case SourceJSONL:
		if o.Dir == "" {
			return nil, perr.InvalidArgf("archive: jsonl source needs a directory")
		}
		return jsonl.NewSource(o.Dir), nil
	default:
		return nil, perr.InvalidArgf("archive: unknown source kind %q", o.Kind)
	}
}

func sourceName(o SourceOptions) string {
	if o.Kind == "" {
		return "none"
	}
	return o.Kind
}
