package domain

import (
	"context"
	"errors"

	"feedvault/internal/core/interval"
	perr "feedvault/internal/platform/errors"
)

// FailureKind classifies why a gap was not covered
type FailureKind string

const (
	// KindTransient may succeed on a later call: rate limits, timeouts, 5xx
	KindTransient FailureKind = "transient"
	// KindAuth means the credentials were rejected; remaining gaps are skipped
	KindAuth FailureKind = "auth"
	// KindNotFound means the identity does not exist at the source
	// an ensure call treats it as an empty fetch
	KindNotFound FailureKind = "notfound"
	// KindStorage means a post write or coverage record failed
	KindStorage FailureKind = "storage"
	// KindSkipped marks gaps never attempted after an auth failure
	KindSkipped FailureKind = "skipped"
	// KindInvalid means the source rejected the request itself, retrying cannot help
	KindInvalid FailureKind = "invalid"
	// KindTruncated means the source stopped early; what it read is stored
	// but only the part it read in full is recorded
	KindTruncated FailureKind = "truncated"
)

// Classify maps an error onto a FailureKind
// anything unrecognized is transient
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	if _, ok := AsTruncated(err); ok {
		return KindTruncated
	}
	switch perr.CodeOf(err) {
	case perr.ErrorCodeUnauthorized, perr.ErrorCodeForbidden:
		return KindAuth
	case perr.ErrorCodeInvalidArgument, perr.ErrorCodeValidation:
		return KindInvalid
	case perr.ErrorCodeNotFound:
		return KindNotFound
	case perr.ErrorCodeStorage, perr.ErrorCodeDB, perr.ErrorCodeDuplicateKey:
		return KindStorage
	default:
		return KindTransient
	}
}

// Retryable reports whether a later attempt at the same gap may succeed
func (k FailureKind) Retryable() bool { return k == KindTransient }

// Truncated is returned by a source that stopped before reading all of an interval.
// Posts holds what it did read. Complete, when set, is the leading or trailing
// part of the interval it read in full
type Truncated struct {
	Posts    []Post
	Complete *interval.Interval
	Reason   string
}

func (t *Truncated) Error() string { return t.Reason }

// AsTruncated finds a *Truncated in err's chain
func AsTruncated(err error) (*Truncated, bool) {
	var t *Truncated
	ok := errors.As(err, &t)
	return t, ok
}

// Split cuts gap into the part read in full and the rest.
// ok is false when no leading or trailing part of gap was read in full
func (t *Truncated) Split(gap interval.Interval) (done, rest interval.Interval, ok bool) {
	c := t.Complete
	if c == nil || c.Start > c.End || c.Start < gap.Start || c.End > gap.End {
		return interval.Interval{}, gap, false
	}
	switch {
	case c.Start == gap.Start && c.End < gap.End:
		return *c, interval.Interval{Start: c.End.AddDays(1), End: gap.End}, true
	case c.End == gap.End && c.Start > gap.Start:
		return *c, interval.Interval{Start: gap.Start, End: c.Start.AddDays(-1)}, true
	}
	return interval.Interval{}, gap, false
}
