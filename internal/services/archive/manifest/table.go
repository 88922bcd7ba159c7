package manifest

import (
	"context"
	"errors"
	"time"

	perr "feedvault/internal/platform/errors"
	"feedvault/internal/platform/store"
)

// Dialect picks placeholder and timestamp syntax for TablePersister
type Dialect int

const (
	// Postgres uses $n placeholders
	Postgres Dialect = iota
	// SQLite uses ? placeholders
	SQLite
)

// TablePersister keeps the document in the single row coverage_manifest table
type TablePersister struct {
	db      store.TxRunner
	dialect Dialect
}

// NewTable returns a TablePersister on db
func NewTable(db store.TxRunner, d Dialect) *TablePersister {
	if db == nil {
		panic("manifest: nil db")
	}
	return &TablePersister{db: db, dialect: d}
}

// Migrate creates the table when missing
func (t *TablePersister) Migrate(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS coverage_manifest (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		doc        TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`
	if t.dialect == Postgres {
		ddl = `CREATE TABLE IF NOT EXISTS coverage_manifest (
			id         smallint PRIMARY KEY CHECK (id = 1),
			doc        jsonb NOT NULL,
			updated_at timestamptz NOT NULL
		)`
	}
	if _, err := t.db.Exec(ctx, ddl); err != nil {
		return t.wrap(err, "create coverage_manifest")
	}
	return nil
}

// Read returns nil, nil when the row does not exist
func (t *TablePersister) Read(ctx context.Context) ([]byte, error) {
	q := `SELECT doc FROM coverage_manifest WHERE id = 1`
	if t.dialect == Postgres {
		q = `SELECT doc::text FROM coverage_manifest WHERE id = 1`
	}
	doc, err := store.One(ctx, t.db, scanDoc, q)
	if err != nil {
		if errors.Is(err, perr.ErrNotFound) {
			return nil, nil
		}
		return nil, t.wrap(err, "read coverage_manifest")
	}
	return []byte(doc), nil
}

// Write upserts the single row inside a transaction
func (t *TablePersister) Write(ctx context.Context, doc []byte) error {
	upsert := `INSERT INTO coverage_manifest (id, doc, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`
	if t.dialect == Postgres {
		upsert = `INSERT INTO coverage_manifest (id, doc, updated_at) VALUES (1, $1::jsonb, $2)
			ON CONFLICT (id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`
	}
	now := t.now()
	err := t.db.Tx(ctx, func(q store.Querier) error {
		_, err := q.Exec(ctx, upsert, string(doc), now)
		return err
	})
	if err != nil {
		return t.wrap(err, "write coverage_manifest")
	}
	return nil
}

// Update locks the row, hands its document to fn and stores the result in one transaction
func (t *TablePersister) Update(ctx context.Context, fn func(stored []byte) ([]byte, error)) error {
	now := t.now()
	seed := `INSERT INTO coverage_manifest (id, doc, updated_at) VALUES (1, '{}', ?) ON CONFLICT (id) DO NOTHING`
	read := `SELECT doc FROM coverage_manifest WHERE id = 1`
	write := `UPDATE coverage_manifest SET doc = ?, updated_at = ? WHERE id = 1`
	if t.dialect == Postgres {
		seed = `INSERT INTO coverage_manifest (id, doc, updated_at) VALUES (1, '{}'::jsonb, $1) ON CONFLICT (id) DO NOTHING`
		read = `SELECT doc::text FROM coverage_manifest WHERE id = 1 FOR UPDATE`
		write = `UPDATE coverage_manifest SET doc = $1::jsonb, updated_at = $2 WHERE id = 1`
	}
	err := t.db.Tx(ctx, func(q store.Querier) error {
		// the seed write takes sqlite's write lock before the read
		if _, err := q.Exec(ctx, seed, now); err != nil {
			return err
		}
		stored, err := store.One(ctx, q, scanDoc, read)
		if err != nil {
			return err
		}
		doc, err := fn([]byte(stored))
		if err != nil {
			return err
		}
		_, err = q.Exec(ctx, write, string(doc), now)
		return err
	})
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeStorage) {
			return err
		}
		return t.wrap(err, "update coverage_manifest")
	}
	return nil
}

func (t *TablePersister) now() any {
	if t.dialect == Postgres {
		return time.Now().UTC()
	}
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (t *TablePersister) String() string {
	if t.dialect == Postgres {
		return "table:postgres"
	}
	return "table:sqlite"
}

func (t *TablePersister) wrap(err error, msg string) error {
	return perr.Wrap(err, perr.ErrorCodeStorage, msg)
}

func scanDoc(r store.Row) (string, error) {
	var doc string
	err := r.Scan(&doc)
	return doc, err
}
