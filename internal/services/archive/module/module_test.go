package module

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"feedvault/internal/adapters/source/jsonl"
	"feedvault/internal/core/interval"
	"feedvault/internal/modkit"
	modmodule "feedvault/internal/modkit/module"
	"feedvault/internal/platform/config"
	perr "feedvault/internal/platform/errors"
	phttp "feedvault/internal/platform/net/http"
	"feedvault/internal/platform/store"
	"feedvault/internal/services/archive/domain"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		Backend:      BackendSQLite,
		Manifest:     ManifestFile,
		ManifestPath: filepath.Join(dir, "coverage.json"),
		Workers:      2,
		GapRetries:   1,
		RetryBase:    time.Millisecond,
		Source:       SourceOptions{Kind: SourceJSONL, Dir: filepath.Join(dir, "raw")},
	}
}

func writeRaw(t *testing.T, dir, identity string, posts ...domain.Post) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(filepath.Join(dir, identity+".jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jsonl.Write(f, posts); err != nil {
		t.Fatal(err)
	}
}

func post(id string, day string) domain.Post {
	at := interval.MustDate(day).Time().Add(12 * time.Hour)
	return domain.Post{PostID: id, PublishTime: at, Text: "post " + id}
}

func TestNew_EnsureOverHTTP(t *testing.T) {
	ctx := context.Background()
	o := testOptions(t)
	writeRaw(t, o.Source.Dir, "jack", post("1", "2024-01-01"), post("2", "2024-01-03"), post("3", "2024-02-01"))

	m, err := New(ctx, modkit.Deps{SQLite: store.SQLiteMemory(t)}, o)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "archive" || m.Prefix() != "/archive" {
		t.Fatalf("name/prefix = %s %s", m.Name(), m.Prefix())
	}

	mux := chi.NewRouter()
	m.MountRoutes(phttp.AdaptChi(mux))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	body := `{"identities":["@jack"],"start":"2024-01-01","end":"2024-01-31"}`
	res, err := http.Post(srv.URL+"/archive/posts/ensure", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	var env struct {
		Data domain.EnsureResp `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if len(env.Data.Posts) != 2 || len(env.Data.Failures) != 0 {
		t.Fatalf("ensure = %+v", env.Data)
	}

	ports := modmodule.MustPortsOf[domain.ServicePort](m)
	cov := ports.Coverage("jack")
	want := interval.Set{{Start: interval.MustDate("2024-01-01"), End: interval.MustDate("2024-01-31")}}
	if len(cov) != 1 || cov[0] != want[0] {
		t.Fatalf("coverage = %v", cov)
	}

	raw, err := os.ReadFile(o.ManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"jack"`) {
		t.Fatalf("manifest = %s", raw)
	}
}

func TestNew_TableManifestSurvivesRebuild(t *testing.T) {
	ctx := context.Background()
	db := store.SQLiteMemory(t)
	o := testOptions(t)
	o.Manifest = ManifestTable
	writeRaw(t, o.Source.Dir, "jack", post("1", "2024-01-02"))

	m, err := New(ctx, modkit.Deps{SQLite: db}, o)
	if err != nil {
		t.Fatal(err)
	}
	svc := m.Ports().(Ports).Service
	if _, _, err := svc.EnsureAndGetPosts(ctx, []string{"jack"}, interval.MustDate("2024-01-01"), interval.MustDate("2024-01-05")); err != nil {
		t.Fatal(err)
	}

	again, err := New(ctx, modkit.Deps{SQLite: db}, o)
	if err != nil {
		t.Fatal(err)
	}
	if got := again.Ports().(Ports).Service.Coverage("jack").Days(); got != 5 {
		t.Fatalf("covered days after rebuild = %d", got)
	}
}

func TestNew_ReadOnlyWithoutSource(t *testing.T) {
	ctx := context.Background()
	o := testOptions(t)
	o.Source = SourceOptions{}

	m, err := New(ctx, modkit.Deps{SQLite: store.SQLiteMemory(t)}, o)
	if err != nil {
		t.Fatal(err)
	}
	svc := m.Ports().(Ports).Service
	posts, err := svc.GetPosts(ctx, []string{"jack"}, interval.MustDate("2024-01-01"), interval.MustDate("2024-01-02"))
	if err != nil || len(posts) != 0 {
		t.Fatalf("GetPosts = %v, %v", posts, err)
	}
	_, _, err = svc.EnsureAndGetPosts(ctx, []string{"jack"}, interval.MustDate("2024-01-01"), interval.MustDate("2024-01-02"))
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("ensure without source err = %v", err)
	}
}

func TestNew_BackendErrors(t *testing.T) {
	ctx := context.Background()

	o := testOptions(t)
	o.Backend = BackendPostgres
	if _, err := New(ctx, modkit.Deps{SQLite: store.SQLiteMemory(t)}, o); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("missing pg err = %v", err)
	}

	o.Backend = "mongo"
	if _, err := New(ctx, modkit.Deps{}, o); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("unknown backend err = %v", err)
	}

	o = testOptions(t)
	o.Source = SourceOptions{Kind: SourceHTTP}
	if _, err := New(ctx, modkit.Deps{SQLite: store.SQLiteMemory(t)}, o); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("http source without base url err = %v", err)
	}
}

func TestFromConfig_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("CORE_ARCHIVE_BACKEND", "Postgres")
	t.Setenv("CORE_ARCHIVE_WORKERS", "8")
	t.Setenv("CORE_ARCHIVE_FETCH_TIMEOUT", "5s")
	t.Setenv("CORE_SOURCE_KIND", "http")
	t.Setenv("CORE_SOURCE_BASE_URL", "https://api.example.test")

	o := FromConfig(config.New())
	if o.Backend != BackendPostgres || o.Workers != 8 || o.FetchTimeout != 5*time.Second {
		t.Fatalf("archive options = %+v", o)
	}
	if o.Manifest != ManifestFile || o.GapRetries != 3 || o.MaxRangeDays != 366 {
		t.Fatalf("defaults = %+v", o)
	}
	if o.Source.Kind != SourceHTTP || o.Source.BaseURL != "https://api.example.test" || o.Source.PageSize != 100 {
		t.Fatalf("source options = %+v", o.Source)
	}
}

func TestStoreConfig_SelectsBackend(t *testing.T) {
	t.Setenv("SERVICE_SQLITE_PATH", "/tmp/x.db")
	sc := StoreConfig(config.New(), Options{Backend: BackendSQLite})
	if !sc.SQLite.Enabled || sc.PG.Enabled || sc.SQLite.Path != "/tmp/x.db" {
		t.Fatalf("sqlite config = %+v", sc)
	}

	t.Setenv("SERVICE_PGSQL_DBURL", "postgres://u:p@localhost/db")
	sc = StoreConfig(config.New(), Options{Backend: BackendPostgres})
	if !sc.PG.Enabled || sc.SQLite.Enabled || sc.PG.URL != "postgres://u:p@localhost/db" {
		t.Fatalf("pg config = %+v", sc)
	}
}
