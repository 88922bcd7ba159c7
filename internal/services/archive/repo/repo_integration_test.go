//go:build integration_pg

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"feedvault/internal/core/interval"
	"feedvault/internal/platform/store"
	"feedvault/internal/services/archive/domain"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "feedvault",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/feedvault?sslmode=disable", host, port.Port())
}

func TestPG_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(t)

	s, err := store.Open(ctx, store.Config{PG: store.PGConfig{Enabled: true, URL: dsn, MaxConns: 4}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(ctx) })

	d := NewPG().WithChunk(2)
	if err := d.Migrate(ctx, s.PG); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := d.Migrate(ctx, s.PG); err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	r := d.Bind(s.PG)

	batch := []domain.Post{
		post("1", "2024-01-01T10:00:00Z"),
		post("2", "2024-01-02T10:00:00Z"),
		post("2", "2024-01-02T11:00:00Z"),
		post("3", "2024-01-03T23:59:59.5Z"),
	}
	ins, dup, err := r.UpsertMany(ctx, "jack", batch)
	if err != nil || ins != 3 || dup != 1 {
		t.Fatalf("upsert = %d %d %v", ins, dup, err)
	}
	ins, dup, err = r.UpsertMany(ctx, "jack", batch[:2])
	if err != nil || ins != 0 || dup != 2 {
		t.Fatalf("repeat upsert = %d %d %v", ins, dup, err)
	}

	got, err := r.Query(ctx, []string{"jack"}, interval.MustDate("2024-01-02"), interval.MustDate("2024-01-03"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].PostID != "2" || got[1].PostID != "3" {
		t.Fatalf("query = %v", ids(got))
	}
	if n, err := r.Count(ctx, "jack"); err != nil || n != 3 {
		t.Fatalf("count = %d %v", n, err)
	}
}
