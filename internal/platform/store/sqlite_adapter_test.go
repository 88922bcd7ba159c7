package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"feedvault/internal/platform/store/sqlite"
	"feedvault/internal/platform/store/trace"
)

type captureTracer struct {
	mu     sync.Mutex
	events []trace.Event
}

func (c *captureTracer) OnQuery(_ context.Context, ev trace.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func TestSQLiteAdapter_ExecTagAndColumns(t *testing.T) {
	t.Parallel()
	db := SQLiteMemory(t)
	ctx := context.Background()

	if _, err := db.Exec(ctx, `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatal(err)
	}
	tg, err := db.Exec(ctx, `INSERT INTO t (name) VALUES (?), (?)`, "zoe", "ada")
	if err != nil {
		t.Fatal(err)
	}
	if tg.RowsAffected() != 2 || tg.String() != "ROWS 2" {
		t.Fatalf("tag = %q / %d", tg.String(), tg.RowsAffected())
	}

	rs, err := db.Query(ctx, `SELECT id, name FROM t ORDER BY id`)
	if err != nil {
		t.Fatal(err)
	}
	defer rs.Close()
	cols := rs.Columns()
	if len(cols) != 2 || cols[0] != "id" || cols[1] != "name" {
		t.Fatalf("Columns = %v", cols)
	}
	var names []string
	for rs.Next() {
		var id int
		var name string
		if err := rs.Scan(&id, &name); err != nil {
			t.Fatal(err)
		}
		names = append(names, name)
	}
	if rs.Err() != nil || len(names) != 2 || names[0] != "zoe" {
		t.Fatalf("rows = %v, %v", names, rs.Err())
	}
}

func TestSQLiteAdapter_TxCommitAndRollback(t *testing.T) {
	t.Parallel()
	db := SQLiteMemory(t)
	ctx := context.Background()
	if _, err := db.Exec(ctx, `CREATE TABLE t (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatal(err)
	}

	err := db.Tx(ctx, func(q Querier) error {
		_, err := q.Exec(ctx, `INSERT INTO t (id) VALUES (1)`)
		return err
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	boom := errors.New("boom")
	err = db.Tx(ctx, func(q Querier) error {
		if _, err := q.Exec(ctx, `INSERT INTO t (id) VALUES (2)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	n, err := Scalar[int](ctx, db, `SELECT COUNT(*) FROM t`)
	if err != nil || n != 1 {
		t.Fatalf("count after rollback = %d, %v", n, err)
	}
}

func TestSQLiteAdapter_TracesQueries(t *testing.T) {
	t.Parallel()
	tr := &captureTracer{}
	db := &sqliteAdapter{d: sqlite.OpenMemory(t), trace: timing{tracer: tr, slowMs: 0}}
	ctx := context.Background()

	if _, err := db.Exec(ctx, `CREATE TABLE t (id INTEGER)`); err != nil {
		t.Fatal(err)
	}
	var id int
	// no rows is traced without an error
	_ = db.QueryRow(ctx, `SELECT id FROM t WHERE id = ?`, 9).Scan(&id)
	_, _ = db.Query(ctx, `SELECT missing FROM t`)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.events) != 3 {
		t.Fatalf("events = %d, want 3", len(tr.events))
	}
	if tr.events[1].Err != nil {
		t.Fatalf("no-rows scan traced as error: %v", tr.events[1].Err)
	}
	if tr.events[2].Err == nil {
		t.Fatalf("bad query should carry its error")
	}
	if !tr.events[0].Slow {
		t.Fatalf("slow threshold 0 should flag every query")
	}
}

func TestSQLiteAdapter_PingAndClose(t *testing.T) {
	t.Parallel()
	a := &sqliteAdapter{d: sqlite.OpenMemory(t)}
	if err := a.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Ping(context.Background()); err == nil {
		t.Fatal("ping after close should fail")
	}
}

func TestSQLiteAdapter_BusyTxGivesUp(t *testing.T) {
	t.Parallel()
	db := SQLiteMemory(t)
	calls := 0
	busy := errors.New("database is locked (5) (SQLITE_BUSY)")
	err := db.Tx(context.Background(), func(Querier) error {
		calls++
		return busy
	})
	if !errors.Is(err, busy) || calls != busyAttempts {
		t.Fatalf("err = %v after %d calls", err, calls)
	}
}
