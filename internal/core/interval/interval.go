// Package interval implements set algebra over closed calendar date ranges
//
// Dates carry no time of day. A Set is kept in canonical form: ascending,
// with no two intervals overlapping or touching
package interval

import (
	"cmp"
	stderrs "errors"
	"fmt"
	"slices"
	"strings"
	"time"

	perr "feedvault/internal/platform/errors"
)

// Layout is the ISO 8601 calendar date layout used on the wire and on disk
const Layout = "2006-01-02"

const secondsPerDay = 86400

// ErrInvalidRange marks an interval whose start falls after its end
var ErrInvalidRange = stderrs.New("invalid range")

// Date is a UTC calendar day counted from the unix epoch
type Date int32

// FromTime truncates t to its UTC calendar day
func FromTime(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay)
}

// ParseDate parses YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(s))
	if err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "invalid date %q, want YYYY-MM-DD", s)
	}
	return FromTime(t), nil
}

// MustDate is ParseDate that panics, for constants and tests
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns midnight UTC of d
func (d Date) Time() time.Time { return time.Unix(int64(d)*secondsPerDay, 0).UTC() }

// String renders d as YYYY-MM-DD
func (d Date) String() string { return d.Time().Format(Layout) }

// AddDays shifts d by n days
func (d Date) AddDays(n int) Date { return d + Date(n) }

// MarshalText implements encoding.TextMarshaler
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Interval is a closed range of days [Start, End]
type Interval struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// New builds a normalized interval
func New(start, end Date) (Interval, error) { return Normalize(Interval{Start: start, End: end}) }

// Parse builds a normalized interval from two YYYY-MM-DD strings
func Parse(start, end string) (Interval, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Interval{}, perr.WithField(err, "start")
	}
	e, err := ParseDate(end)
	if err != nil {
		return Interval{}, perr.WithField(err, "end")
	}
	return New(s, e)
}

// Normalize rejects intervals whose start is after their end
func Normalize(iv Interval) (Interval, error) {
	if iv.Start > iv.End {
		return Interval{}, perr.Wrapf(ErrInvalidRange, perr.ErrorCodeInvalidArgument,
			"start %s is after end %s", iv.Start, iv.End)
	}
	return iv, nil
}

// IsInvalidRange reports whether err came from Normalize
func IsInvalidRange(err error) bool { return stderrs.Is(err, ErrInvalidRange) }

// Days is the number of calendar days in iv
func (iv Interval) Days() int { return int(iv.End-iv.Start) + 1 }

// Contains reports whether d lies within iv
func (iv Interval) Contains(d Date) bool { return d >= iv.Start && d <= iv.End }

// String renders iv as [start, end]
func (iv Interval) String() string { return fmt.Sprintf("[%s, %s]", iv.Start, iv.End) }

// Set is an ordered sequence of disjoint, non-adjacent intervals
type Set []Interval

// Clone returns an independent copy of s
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

// Canonical reports whether s is sorted with no overlapping or touching intervals
func (s Set) Canonical() bool {
	for i, iv := range s {
		if iv.Start > iv.End {
			return false
		}
		if i > 0 && iv.Start <= s[i-1].End+1 {
			return false
		}
	}
	return true
}

// Covers reports whether every day of iv is in s
func (s Set) Covers(iv Interval) bool { return len(Gaps(iv, s)) == 0 }

// Days totals the days covered by s
func (s Set) Days() int {
	n := 0
	for _, iv := range s {
		n += iv.Days()
	}
	return n
}

// Canonicalize sorts and coalesces arbitrary intervals into canonical form
// intervals with start after end are dropped
func Canonicalize(in []Interval) Set {
	work := make([]Interval, 0, len(in))
	for _, iv := range in {
		if iv.Start <= iv.End {
			work = append(work, iv)
		}
	}
	if len(work) == 0 {
		return Set{}
	}
	slices.SortFunc(work, func(a, b Interval) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})

	out := make(Set, 0, len(work))
	cur := work[0]
	for _, iv := range work[1:] {
		// touching counts: [1,4] and [5,9] become [1,9]
		if iv.Start <= cur.End+1 {
			cur.End = max(cur.End, iv.End)
			continue
		}
		out = append(out, cur)
		cur = iv
	}
	return append(out, cur)
}

// Merge inserts iv into covered and coalesces, returning a new canonical set
// an interval with start after end leaves the set unchanged
func Merge(covered Set, iv Interval) Set {
	if iv.Start > iv.End {
		return Canonicalize(covered)
	}
	work := make([]Interval, 0, len(covered)+1)
	work = append(work, covered...)
	work = append(work, iv)
	return Canonicalize(work)
}

// Gaps returns the ascending sub-intervals of requested not covered by covered
// the result is empty iff requested is fully covered
func Gaps(requested Interval, covered Set) []Interval {
	if requested.Start > requested.End {
		return nil
	}
	if !covered.Canonical() {
		covered = Canonicalize(covered)
	}

	var out []Interval
	cursor := requested.Start
	for _, c := range covered {
		if c.End < cursor {
			continue
		}
		if c.Start > requested.End {
			break
		}
		if c.Start > cursor {
			out = append(out, Interval{Start: cursor, End: c.Start - 1})
		}
		if c.End >= requested.End {
			return out
		}
		cursor = c.End + 1
	}
	if cursor <= requested.End {
		out = append(out, Interval{Start: cursor, End: requested.End})
	}
	return out
}
