// Package guardrails holds the per-identity lock and time budgets for ensure calls
package guardrails

import (
	"context"
	"time"
)

// Timeouts bounds the phases of one ensure call
// zero means no extra limit at that level
type Timeouts struct {
	// Call is the whole budget of one EnsureCoverage
	Call time.Duration

	// Fetch caps one source fetch for one gap
	Fetch time.Duration

	// DB caps one post write or coverage record
	DB time.Duration
}

// ForCall returns the call-scoped context
func ForCall(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Call)
}

// ForFetch returns a sub context for one fetch
func ForFetch(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Fetch)
}

// ForDB returns a sub context for one storage step
func ForDB(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.DB)
}

// Remaining is the time left before ctx's deadline, zero when none or expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout takes the tighter of d and the parent's remainder
// and never extends the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
