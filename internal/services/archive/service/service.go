// Package service implements the coverage aware storage engine
//
// For each identity the engine keeps a manifest of covered date intervals,
// fetches only the gaps of a request, stores the posts and then records the
// gap as covered. A gap is recorded only after its posts are stored, so a
// crash between the two steps costs a refetch, never a silent hole
package service

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"feedvault/internal/core/interval"
	"feedvault/internal/modkit/repokit"
	perr "feedvault/internal/platform/errors"
	"feedvault/internal/platform/logger"
	"feedvault/internal/services/archive/domain"
	"feedvault/internal/services/archive/guardrails"
)

// Config holds the engine tuning
type Config struct {
	Workers      int           // identities processed in parallel; <=0 -> 1
	GapRetries   int           // fetch attempts per gap; <=0 -> 1
	RetryBase    time.Duration // base backoff between attempts; <=0 -> 500ms
	MaxRangeDays int           // 0 = unlimited
	Timeouts     guardrails.Timeouts
}

// Service is the storage engine
type Service struct {
	DB       repokit.TxRunner
	Binder   repokit.Binder[domain.PostRepo]
	Manifest domain.Coverage
	Source   domain.Source // used by EnsureAndGetPosts, may be nil for read only use
	Cfg      Config

	locks *guardrails.KeyedLock
}

var _ domain.ServicePort = (*Service)(nil)

// maxBackoff caps the sleep between attempts on one gap
const maxBackoff = 30 * time.Second

// sleep is a seam for tests
var sleep = sleepCtx

// New constructs the engine
func New(db repokit.TxRunner, binder repokit.Binder[domain.PostRepo], cov domain.Coverage, src domain.Source, cfg Config) *Service {
	if db == nil {
		panic("archive.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("archive.Service requires a non nil PostRepo binder")
	}
	if cov == nil {
		panic("archive.Service requires a non nil coverage manifest")
	}
	return &Service{
		DB: db, Binder: binder, Manifest: cov, Source: src,
		Cfg:   cfg,
		locks: guardrails.NewKeyedLock(),
	}
}

// EnsureCoverage fetches and stores the gaps of identity over [start, end]
// then returns the per gap outcomes and the posts of the whole range.
// Gap failures are reported in the Report, the error is reserved for bad input
// and failures of the final read
func (s *Service) EnsureCoverage(ctx context.Context, identity string, start, end interval.Date, fetch domain.FetchFunc) (domain.Report, error) {
	iv, err := s.validate(identity, start, end)
	if err != nil {
		return domain.Report{}, err
	}
	if fetch == nil {
		if s.Source == nil {
			return domain.Report{}, perr.InvalidArgf("no fetch function and no source configured")
		}
		fetch = s.Source.Fetch
	}

	ctx = withRunID(ctx)
	callCtx, cancel := guardrails.ForCall(ctx, s.Cfg.Timeouts)
	defer cancel()

	rep := s.ensure(callCtx, identity, iv, fetch, &authTrip{})

	// read with the caller's context so an exhausted call budget still returns what is stored
	posts, err := s.GetPosts(ctx, []string{identity}, start, end)
	if err != nil {
		return rep, err
	}
	rep.Posts = posts
	return rep, nil
}

// EnsureAndGetPosts ensures every identity with the configured source,
// identities in parallel, then reads all of them in one query.
// An auth failure in any identity skips the remaining gaps of every identity
func (s *Service) EnsureAndGetPosts(ctx context.Context, identities []string, start, end interval.Date) ([]domain.Post, []domain.PartialFailure, error) {
	iv, err := interval.New(start, end)
	if err != nil {
		return nil, nil, err
	}
	ids := dedupe(identities)
	if len(ids) == 0 {
		return []domain.Post{}, nil, nil
	}
	for _, id := range ids {
		if _, err := s.validate(id, start, end); err != nil {
			return nil, nil, err
		}
	}
	if s.Source == nil {
		return nil, nil, perr.Unavailablef("no content source configured")
	}

	ctx = withRunID(ctx)
	callCtx, cancel := guardrails.ForCall(ctx, s.Cfg.Timeouts)
	defer cancel()

	trip := &authTrip{}
	perID := make([][]domain.PartialFailure, len(ids))

	// ensure never fails a whole identity, so one identity cannot cancel the others
	var g errgroup.Group
	g.SetLimit(max(s.Cfg.Workers, 1))
	for i, id := range ids {
		g.Go(func() error {
			perID[i] = s.ensure(callCtx, id, iv, s.Source.Fetch, trip).Failures()
			return nil
		})
	}
	_ = g.Wait()

	var failures []domain.PartialFailure
	for _, f := range perID {
		failures = append(failures, f...)
	}

	posts, err := s.GetPosts(ctx, ids, start, end)
	if err != nil {
		return nil, failures, err
	}
	logger.C(ctx).Info().
		Int("identities", len(ids)).
		Int("posts", len(posts)).
		Int("failures", len(failures)).
		Msg("ensure and get done")
	return posts, failures, nil
}

// GetPosts reads stored posts without fetching
func (s *Service) GetPosts(ctx context.Context, identities []string, start, end interval.Date) ([]domain.Post, error) {
	if _, err := interval.New(start, end); err != nil {
		return nil, err
	}
	ids := dedupe(identities)
	if len(ids) == 0 {
		return []domain.Post{}, nil
	}
	dbCtx, cancel := guardrails.ForDB(ctx, s.Cfg.Timeouts)
	defer cancel()
	return s.Binder.Bind(s.DB).Query(dbCtx, ids, start, end)
}

// Plan returns the gaps an ensure call would fetch right now
func (s *Service) Plan(ctx context.Context, identity string, start, end interval.Date) ([]interval.Interval, error) {
	iv, err := s.validate(identity, start, end)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gaps := interval.Gaps(iv, s.Manifest.CoverageFor(identity))
	if gaps == nil {
		gaps = []interval.Interval{}
	}
	return gaps, nil
}

// Coverage returns the covered intervals of identity
func (s *Service) Coverage(identity string) interval.Set {
	return s.Manifest.CoverageFor(identity)
}

// ensure runs the gap loop for one identity under its lock
// when the lock cannot be had in time the whole request is one failed gap
func (s *Service) ensure(ctx context.Context, identity string, iv interval.Interval, fetch domain.FetchFunc, trip *authTrip) domain.Report {
	rep := domain.Report{RunID: logger.RunID(ctx), Identity: identity, Requested: iv}
	log := logger.C(ctx).With().Str("identity", identity).Stringer("requested", iv).Logger()

	release, err := s.locks.Lock(ctx, identity)
	if err != nil {
		rep.Gaps = []domain.GapOutcome{{Interval: iv}}
		fail(&rep.Gaps[0], identity, domain.KindTransient, "waiting for identity lock: "+err.Error())
		log.Warn().Err(err).Msg("identity busy")
		return rep
	}
	defer release()

	gaps := interval.Gaps(iv, s.Manifest.CoverageFor(identity))
	rep.Gaps = make([]domain.GapOutcome, len(gaps))
	for i, g := range gaps {
		rep.Gaps[i] = domain.GapOutcome{Interval: g, State: domain.GapPending}
	}
	if len(gaps) == 0 {
		log.Debug().Msg("range already covered")
		return rep
	}
	log.Info().Int("gaps", len(gaps)).Msg("ensuring coverage")

	for i := range rep.Gaps {
		out := &rep.Gaps[i]
		if reason, ok := trip.tripped(); ok {
			fail(out, identity, domain.KindSkipped, "skipped after auth failure: "+reason)
			continue
		}
		if err := ctx.Err(); err != nil {
			fail(out, identity, domain.KindTransient, err.Error())
			continue
		}
		s.runGap(ctx, identity, out, fetch, trip)

		ev := log.Info()
		if out.Failure != nil {
			ev = log.Warn().Str("kind", string(out.Failure.Kind)).Str("reason", out.Failure.Reason)
		}
		ev.Stringer("gap", out.Interval).
			Str("state", string(out.State)).
			Int("fetched", out.Fetched).
			Int("inserted", out.Inserted).
			Int("deduped", out.Deduped).
			Int("attempts", out.Attempts).
			Msg("gap done")
	}
	return rep
}

// runGap moves one gap through FETCHING -> STORED -> COVERED or FAILED
func (s *Service) runGap(ctx context.Context, identity string, out *domain.GapOutcome, fetch domain.FetchFunc, trip *authTrip) {
	out.State = domain.GapFetching
	posts, attempts, err := s.fetchWithRetry(ctx, identity, out.Interval, fetch)
	out.Attempts = attempts
	var cut *domain.Truncated
	if err != nil {
		switch kind := domain.Classify(err); kind {
		case domain.KindNotFound:
			// nothing to store, the range is still covered
			posts = nil
		case domain.KindTruncated:
			cut, _ = domain.AsTruncated(err)
			posts = cut.Posts
		case domain.KindAuth:
			trip.trip(err.Error())
			fail(out, identity, kind, err.Error())
			return
		default:
			fail(out, identity, kind, err.Error())
			return
		}
	}
	out.Fetched = len(posts)

	dbCtx, cancel := guardrails.ForDB(ctx, s.Cfg.Timeouts)
	ins, dup, err := s.Binder.Bind(s.DB).UpsertMany(dbCtx, identity, posts)
	cancel()
	if err != nil {
		fail(out, identity, domain.KindStorage, err.Error())
		return
	}
	out.State, out.Inserted, out.Deduped = domain.GapStored, ins, dup

	done, rest := out.Interval, interval.Interval{}
	if cut != nil {
		var ok bool
		if done, rest, ok = cut.Split(out.Interval); !ok {
			fail(out, identity, domain.KindTruncated, cut.Error())
			return
		}
	}

	dbCtx, cancel = guardrails.ForDB(ctx, s.Cfg.Timeouts)
	err = s.Manifest.RecordCoverage(dbCtx, identity, done)
	cancel()
	if err != nil {
		fail(out, identity, domain.KindStorage, err.Error())
		return
	}
	if cut != nil {
		fail(out, identity, domain.KindTruncated, fmt.Sprintf("%s; covered %s", cut.Error(), done))
		out.Failure.Interval = rest
		return
	}
	out.State = domain.GapCovered
}

// fetchWithRetry retries transient failures with exponential backoff and jitter
func (s *Service) fetchWithRetry(ctx context.Context, identity string, gap interval.Interval, fetch domain.FetchFunc) ([]domain.Post, int, error) {
	attempts := max(s.Cfg.GapRetries, 1)
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var last error
	for i := range attempts {
		fctx, cancel := guardrails.ForFetch(ctx, s.Cfg.Timeouts)
		posts, err := fetch(fctx, identity, gap)
		cancel()
		if err == nil {
			return posts, i + 1, nil
		}
		last = err

		if !domain.Classify(err).Retryable() || i == attempts-1 || ctx.Err() != nil {
			return nil, i + 1, last
		}

		d := min(base<<i, maxBackoff)
		j := d
		if half := int64(d / 2); half > 0 {
			j = d/2 + time.Duration(rand.Int63n(half))
		}
		logger.C(ctx).Debug().Err(err).Str("identity", identity).Stringer("gap", gap).
			Int("attempt", i+1).Dur("backoff", j).Msg("fetch failed, retrying")
		if se := sleep(ctx, j); se != nil {
			return nil, i + 1, last
		}
	}
	return nil, attempts, last
}

func (s *Service) validate(identity string, start, end interval.Date) (interval.Interval, error) {
	if strings.TrimSpace(identity) == "" {
		return interval.Interval{}, perr.WithField(perr.InvalidArgf("identity is required"), "identity")
	}
	iv, err := interval.New(start, end)
	if err != nil {
		return iv, err
	}
	if s.Cfg.MaxRangeDays > 0 && iv.Days() > s.Cfg.MaxRangeDays {
		return iv, perr.InvalidArgf("range of %d days exceeds the limit of %d", iv.Days(), s.Cfg.MaxRangeDays)
	}
	return iv, nil
}

func fail(out *domain.GapOutcome, identity string, kind domain.FailureKind, reason string) {
	out.State = domain.GapFailed
	out.Failure = &domain.PartialFailure{Identity: identity, Interval: out.Interval, Kind: kind, Reason: reason}
}

// authTrip is shared by every identity of one call
type authTrip struct {
	mu     sync.Mutex
	reason string
	set    bool
}

func (a *authTrip) trip(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.set {
		a.reason, a.set = reason, true
	}
}

func (a *authTrip) tripped() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reason, a.set
}

// withRunID tags ctx with a fresh run id unless one is already set
func withRunID(ctx context.Context) context.Context {
	if logger.RunID(ctx) != "" {
		return ctx
	}
	return logger.WithRun(ctx, uuid.NewString())
}

// dedupe drops blanks and repeats, keeping first occurrence order
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
