// Package domain holds the archive types, ports and failure taxonomy
package domain

import (
	"time"

	"feedvault/internal/core/interval"
)

// Post is one stored post, keyed by (Identity, PostID)
// rows are immutable once written: the first write wins
type Post struct {
	Identity            string    `json:"identity"`
	PostID              string    `json:"post_id"`
	PublishTime         time.Time `json:"publish_time"`
	Text                string    `json:"text"`
	LikeCount           int64     `json:"like_count"`
	RepostCount         int64     `json:"repost_count"`
	ReplyCount          int64     `json:"reply_count"`
	QuoteCount          int64     `json:"quote_count"`
	ViewCount           int64     `json:"view_count"`
	URL                 string    `json:"url"`
	Language            string    `json:"language"`
	AuthorFollowerCount int64     `json:"author_follower_count_at_fetch"`
	FetchedAt           time.Time `json:"fetched_at"`
}

// Day is the UTC calendar day the post was published on
func (p Post) Day() interval.Date { return interval.FromTime(p.PublishTime) }

// GapState tracks one gap through an ensure call
type GapState string

// gap lifecycle: PENDING -> FETCHING -> STORED -> COVERED, or FAILED from any step
const (
	GapPending  GapState = "PENDING"
	GapFetching GapState = "FETCHING"
	GapStored   GapState = "STORED"
	GapCovered  GapState = "COVERED"
	GapFailed   GapState = "FAILED"
)

// GapOutcome is the final state of one gap
type GapOutcome struct {
	Interval interval.Interval `json:"interval"`
	State    GapState          `json:"state"`
	Fetched  int               `json:"fetched"`
	Inserted int               `json:"inserted"`
	Deduped  int               `json:"deduped"`
	Attempts int               `json:"attempts"`
	Failure  *PartialFailure   `json:"failure,omitempty"`
}

// PartialFailure reports a gap that was not covered
type PartialFailure struct {
	Identity string            `json:"identity"`
	Interval interval.Interval `json:"interval"`
	Kind     FailureKind       `json:"kind"`
	Reason   string            `json:"reason"`
}

// Report is the result of EnsureCoverage for one identity
type Report struct {
	RunID     string            `json:"run_id"`
	Identity  string            `json:"identity"`
	Requested interval.Interval `json:"requested"`
	Gaps      []GapOutcome      `json:"gaps"`
	Posts     []Post            `json:"posts"`
}

// Failures lists the gaps that ended FAILED
func (r Report) Failures() []PartialFailure {
	var out []PartialFailure
	for _, g := range r.Gaps {
		if g.Failure != nil {
			out = append(out, *g.Failure)
		}
	}
	return out
}

// Covered counts the gaps that were fetched and recorded
func (r Report) Covered() int {
	n := 0
	for _, g := range r.Gaps {
		if g.State == GapCovered {
			n++
		}
	}
	return n
}
