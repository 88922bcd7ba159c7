package repo

import (
	"time"

	perr "feedvault/internal/platform/errors"
)

// sqliteTime is fixed width so text order matches time order
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		identity                       TEXT    NOT NULL,
		post_id                        TEXT    NOT NULL,
		publish_time                   TEXT    NOT NULL,
		text                           TEXT    NOT NULL DEFAULT '',
		like_count                     INTEGER NOT NULL DEFAULT 0,
		repost_count                   INTEGER NOT NULL DEFAULT 0,
		reply_count                    INTEGER NOT NULL DEFAULT 0,
		quote_count                    INTEGER NOT NULL DEFAULT 0,
		view_count                     INTEGER NOT NULL DEFAULT 0,
		url                            TEXT    NOT NULL DEFAULT '',
		language                       TEXT    NOT NULL DEFAULT '',
		author_follower_count_at_fetch INTEGER NOT NULL DEFAULT 0,
		fetched_at                     TEXT    NOT NULL,
		PRIMARY KEY (identity, post_id)
	) WITHOUT ROWID`,
	`CREATE INDEX IF NOT EXISTS posts_publish_time_idx ON posts (publish_time, identity, post_id)`,
}

// NewSQLite returns the sqlite dialect
func NewSQLite() Dialect {
	return Dialect{
		name:    "sqlite",
		schema:  sqliteSchema,
		ph:      func(int) string { return "?" },
		timeArg: func(t time.Time) any { return t.UTC().Format(sqliteTime) },
		timeDest: func() (any, func() (time.Time, error)) {
			var s string
			return &s, func() (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }
		},
		wrapErr: perr.FromSQLite,
		chunk:   DefaultChunk,
		// SQLITE_MAX_VARIABLE_NUMBER
		maxParams: 32766,
	}
}
