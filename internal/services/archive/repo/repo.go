// Package repo stores posts in postgres or sqlite behind domain.PostRepo
package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"feedvault/internal/core/interval"
	"feedvault/internal/modkit/repokit"
	perr "feedvault/internal/platform/errors"
	"feedvault/internal/services/archive/domain"
)

// DefaultChunk is the number of rows per multi row insert
const DefaultChunk = 500

// postColumns in insert and select order
var postColumns = []string{
	"identity", "post_id", "publish_time", "text",
	"like_count", "repost_count", "reply_count", "quote_count", "view_count",
	"url", "language", "author_follower_count_at_fetch", "fetched_at",
}

// Dialect binds PostRepo to one sql flavour
// the zero value is not usable, build one with NewPG or NewSQLite
type Dialect struct {
	name   string
	schema []string
	ph     func(n int) string
	// timeArg encodes a timestamp as a bind argument
	timeArg func(t time.Time) any
	// timeDest returns a scan target and a decoder for it
	timeDest func() (any, func() (time.Time, error))
	wrapErr  func(err error, msg string) error
	chunk    int

	maxParams int
}

type queries struct {
	q repokit.Queryer
	d Dialect
}

// Bind implements repokit.Binder
func (d Dialect) Bind(q repokit.Queryer) domain.PostRepo {
	return &queries{q: repokit.RequireQueryer(q), d: d}
}

// Name is postgres or sqlite
func (d Dialect) Name() string { return d.name }

// WithChunk returns a copy inserting n rows per statement
// n is clamped to what fits in one statement's bind parameters
func (d Dialect) WithChunk(n int) Dialect {
	if n > 0 {
		d.chunk = min(n, d.MaxChunk())
	}
	return d
}

// MaxChunk is the largest row count one insert statement can bind
func (d Dialect) MaxChunk() int {
	if d.maxParams <= 0 {
		return DefaultChunk
	}
	return d.maxParams / len(postColumns)
}

// Migrate applies the dialect schema, idempotent
func (d Dialect) Migrate(ctx context.Context, q repokit.Queryer) error {
	for _, stmt := range d.schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return d.wrapErr(err, "migrate posts")
		}
	}
	return nil
}

// UpsertMany inserts the posts not yet stored, first write wins
// runs in one transaction when the bound queryer can open one
func (r *queries) UpsertMany(ctx context.Context, identity string, posts []domain.Post) (int, int, error) {
	if strings.TrimSpace(identity) == "" {
		return 0, 0, perr.WithField(perr.InvalidArgf("identity is required"), "identity")
	}
	if len(posts) == 0 {
		return 0, 0, nil
	}

	// stamp identity and drop in batch repeats, keeping the first
	seen := make(map[string]struct{}, len(posts))
	batch := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if p.PostID == "" {
			return 0, 0, perr.WithField(perr.InvalidArgf("post without id for %s", identity), "post_id")
		}
		if _, dup := seen[p.PostID]; dup {
			continue
		}
		seen[p.PostID] = struct{}{}
		p.Identity = identity
		batch = append(batch, p)
	}

	var inserted int
	write := func(q repokit.Queryer) error {
		inserted = 0
		for start := 0; start < len(batch); start += r.d.chunk {
			end := min(start+r.d.chunk, len(batch))
			n, err := r.insertChunk(ctx, q, batch[start:end])
			if err != nil {
				return err
			}
			inserted += n
		}
		return nil
	}

	var err error
	if tx, ok := r.q.(repokit.TxRunner); ok {
		err = tx.Tx(ctx, write)
	} else {
		err = write(r.q)
	}
	if err != nil {
		return 0, 0, r.d.wrapErr(err, fmt.Sprintf("upsert posts for %s", identity))
	}
	return inserted, len(posts) - inserted, nil
}

func (r *queries) insertChunk(ctx context.Context, q repokit.Queryer, chunk []domain.Post) (int, error) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO posts (")
	sb.WriteString(strings.Join(postColumns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(chunk)*len(postColumns))
	for i, p := range chunk {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := range postColumns {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(r.d.ph(len(args) + c + 1))
		}
		sb.WriteByte(')')

		fetched := p.FetchedAt
		if fetched.IsZero() {
			fetched = time.Now()
		}
		args = append(args,
			p.Identity, p.PostID, r.d.timeArg(p.PublishTime), p.Text,
			p.LikeCount, p.RepostCount, p.ReplyCount, p.QuoteCount, p.ViewCount,
			p.URL, p.Language, p.AuthorFollowerCount, r.d.timeArg(fetched),
		)
	}
	sb.WriteString(" ON CONFLICT (identity, post_id) DO NOTHING")

	tag, err := q.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Query returns posts whose UTC publish day is in [start, end]
func (r *queries) Query(ctx context.Context, identities []string, start, end interval.Date) ([]domain.Post, error) {
	if len(identities) == 0 {
		return []domain.Post{}, nil
	}
	if _, err := interval.New(start, end); err != nil {
		return nil, err
	}

	args := make([]any, 0, len(identities)+2)
	in := make([]string, len(identities))
	for i, id := range identities {
		args = append(args, id)
		in[i] = r.d.ph(i + 1)
	}
	args = append(args, r.d.timeArg(start.Time()), r.d.timeArg(end.AddDays(1).Time()))
	n := len(identities)

	sql := fmt.Sprintf(`SELECT %s FROM posts
		WHERE identity IN (%s) AND publish_time >= %s AND publish_time < %s
		ORDER BY publish_time, identity, post_id`,
		strings.Join(postColumns, ", "), strings.Join(in, ", "), r.d.ph(n+1), r.d.ph(n+2))

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, r.d.wrapErr(err, "query posts")
	}
	defer rows.Close()

	out := []domain.Post{}
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, r.d.wrapErr(err, "scan post")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.d.wrapErr(err, "iterate posts")
	}
	return out, nil
}

// Count returns the stored posts of identity
func (r *queries) Count(ctx context.Context, identity string) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, "SELECT COUNT(*) FROM posts WHERE identity = "+r.d.ph(1), identity).Scan(&n)
	if err != nil {
		return 0, r.d.wrapErr(err, "count posts")
	}
	return n, nil
}

func (r *queries) scan(row repokit.Row) (domain.Post, error) {
	var p domain.Post
	pubDst, pub := r.d.timeDest()
	fetDst, fet := r.d.timeDest()
	if err := row.Scan(
		&p.Identity, &p.PostID, pubDst, &p.Text,
		&p.LikeCount, &p.RepostCount, &p.ReplyCount, &p.QuoteCount, &p.ViewCount,
		&p.URL, &p.Language, &p.AuthorFollowerCount, fetDst,
	); err != nil {
		return p, err
	}
	var err error
	if p.PublishTime, err = pub(); err != nil {
		return p, err
	}
	if p.FetchedAt, err = fet(); err != nil {
		return p, err
	}
	return p, nil
}
