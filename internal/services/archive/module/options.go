package module

import (
	"time"

	"feedvault/internal/platform/config"
	"feedvault/internal/platform/store"
)

// Backends
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Manifest persisters
const (
	ManifestFile  = "file"
	ManifestTable = "table"
)

// Source kinds; an empty kind leaves the archive read only
const (
	SourceHTTP  = "http"
	SourceJSONL = "jsonl"
)

// Options controls the archive engine and its content source
type Options struct {
	Backend      string
	Manifest     string
	ManifestPath string

	Workers      int
	GapRetries   int
	RetryBase    time.Duration
	CallTimeout  time.Duration
	FetchTimeout time.Duration
	DBTimeout    time.Duration
	InsertChunk  int
	MaxRangeDays int

	Source SourceOptions
}

// SourceOptions selects and configures the content source
type SourceOptions struct {
	Kind       string
	BaseURL    string
	TokensCSV  string
	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration
	PageSize   int
	MaxPosts   int
	Dir        string
}

// FromConfig reads CORE_ARCHIVE_* and CORE_SOURCE_* values from process env
func FromConfig(cfg config.Conf) Options {
	ac := cfg.Prefix("CORE_ARCHIVE_")
	sc := cfg.Prefix("CORE_SOURCE_")
	return Options{
		Backend:      ac.MayEnum("BACKEND", BackendSQLite, BackendSQLite, BackendPostgres),
		Manifest:     ac.MayEnum("MANIFEST", ManifestFile, ManifestFile, ManifestTable),
		ManifestPath: ac.MayString("MANIFEST_PATH", "data/coverage.json"),
		Workers:      ac.MayInt("WORKERS", 4),
		GapRetries:   ac.MayInt("GAP_RETRIES", 3),
		RetryBase:    ac.MayDuration("RETRY_BASE", 500*time.Millisecond),
		CallTimeout:  ac.MayDuration("CALL_TIMEOUT", 10*time.Minute),
		FetchTimeout: ac.MayDuration("FETCH_TIMEOUT", 2*time.Minute),
		DBTimeout:    ac.MayDuration("DB_TIMEOUT", 30*time.Second),
		InsertChunk:  ac.MayInt("INSERT_CHUNK", 500),
		MaxRangeDays: ac.MayInt("MAX_RANGE_DAYS", 366),
		Source: SourceOptions{
			Kind:       sc.MayEnum("KIND", "", SourceHTTP, SourceJSONL),
			BaseURL:    sc.MayString("BASE_URL", ""),
			TokensCSV:  sc.MayString("TOKENS", ""),
			Timeout:    sc.MayDuration("TIMEOUT", 30*time.Second),
			MaxRetries: sc.MayInt("MAX_RETRIES", 3),
			RetryBase:  sc.MayDuration("RETRY_BASE", 30*time.Second),
			PageSize:   sc.MayInt("PAGE_SIZE", 100),
			MaxPosts:   sc.MayInt("MAX_POSTS", 0),
			Dir:        sc.MayString("DIR", "data/raw"),
		},
	}
}

// StoreConfig enables the backend selected by o, reading SERVICE_PGSQL_* or SERVICE_SQLITE_*
func StoreConfig(cfg config.Conf, o Options) store.Config {
	sc := store.Config{AppName: "feedvault"}
	switch o.Backend {
	case BackendPostgres:
		pc := cfg.Prefix("SERVICE_PGSQL_")
		sc.PG = store.PGConfig{
			Enabled:     true,
			URL:         pc.MustString("DBURL"),
			MaxConns:    int32(pc.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pc.MayInt("SLOW_MS", 500),
			LogSQL:      pc.MayBool("LOG_SQL", false),
		}
	default:
		lc := cfg.Prefix("SERVICE_SQLITE_")
		sc.SQLite = store.SQLiteConfig{
			Enabled:       true,
			Path:          lc.MayString("PATH", "data/feedvault.db"),
			BusyTimeoutMs: lc.MayInt("BUSY_TIMEOUT_MS", 5000),
			SlowQueryMs:   lc.MayInt("SLOW_MS", 500),
			LogSQL:        lc.MayBool("LOG_SQL", false),
		}
	}
	return sc
}
