package domain

import (
	"context"

	"feedvault/internal/core/interval"
)

// Source fetches the raw posts of one identity for one interval
type Source interface {
	Fetch(ctx context.Context, identity string, iv interval.Interval) ([]Post, error)
}

// FetchFunc is the function form of Source
type FetchFunc func(ctx context.Context, identity string, iv interval.Interval) ([]Post, error)

// Fetch implements Source
func (f FetchFunc) Fetch(ctx context.Context, identity string, iv interval.Interval) ([]Post, error) {
	return f(ctx, identity, iv)
}

// Resolver turns free text into a canonical identity
type Resolver interface {
	Resolve(raw string) (string, error)
}

// PostRepo is the post store contract shared by every sql dialect
type PostRepo interface {
	// UpsertMany inserts posts absent from the store and leaves existing rows untouched
	UpsertMany(ctx context.Context, identity string, posts []Post) (inserted, deduped int, err error)

	// Query returns posts published on [start, end] ordered by publish time, identity, post id
	Query(ctx context.Context, identities []string, start, end interval.Date) ([]Post, error)

	// Count returns the number of stored posts for identity
	Count(ctx context.Context, identity string) (int64, error)
}

// Coverage is the manifest surface the engine commits through
type Coverage interface {
	CoverageFor(identity string) interval.Set
	RecordCoverage(ctx context.Context, identity string, iv interval.Interval) error
	Identities() []string
}

// ServicePort is what the module exposes to transports and other modules
type ServicePort interface {
	EnsureCoverage(ctx context.Context, identity string, start, end interval.Date, fetch FetchFunc) (Report, error)
	EnsureAndGetPosts(ctx context.Context, identities []string, start, end interval.Date) ([]Post, []PartialFailure, error)
	GetPosts(ctx context.Context, identities []string, start, end interval.Date) ([]Post, error)
	Plan(ctx context.Context, identity string, start, end interval.Date) ([]interval.Interval, error)
	Coverage(identity string) interval.Set
}
