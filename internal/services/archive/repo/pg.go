package repo

import (
	"strconv"
	"time"

	perr "feedvault/internal/platform/errors"
)

var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		identity                       text        NOT NULL,
		post_id                        text        NOT NULL,
		publish_time                   timestamptz NOT NULL,
		text                           text        NOT NULL DEFAULT '',
		like_count                     bigint      NOT NULL DEFAULT 0,
		repost_count                   bigint      NOT NULL DEFAULT 0,
		reply_count                    bigint      NOT NULL DEFAULT 0,
		quote_count                    bigint      NOT NULL DEFAULT 0,
		view_count                     bigint      NOT NULL DEFAULT 0,
		url                            text        NOT NULL DEFAULT '',
		language                       text        NOT NULL DEFAULT '',
		author_follower_count_at_fetch bigint      NOT NULL DEFAULT 0,
		fetched_at                     timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (identity, post_id)
	)`,
	`CREATE INDEX IF NOT EXISTS posts_publish_time_idx ON posts (publish_time, identity, post_id)`,
}

// NewPG returns the postgres dialect
func NewPG() Dialect {
	return Dialect{
		name:    "postgres",
		schema:  pgSchema,
		ph:      func(n int) string { return "$" + strconv.Itoa(n) },
		timeArg: func(t time.Time) any { return t.UTC() },
		timeDest: func() (any, func() (time.Time, error)) {
			var t time.Time
			return &t, func() (time.Time, error) { return t.UTC(), nil }
		},
		wrapErr: perr.FromPostgres,
		chunk:   DefaultChunk,
		// bind parameters per statement are counted in a uint16 on the wire
		maxParams: 65535,
	}
}
