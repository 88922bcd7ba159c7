// Package manifest tracks which date intervals are already stored per identity
//
// The whole mapping is persisted on every change as a JSON document
//
//	{
//	  "jack": [
//	    {"start": "2024-01-01", "end": "2024-01-31"}
//	  ]
//	}
//
// and reloaded once at startup. Only the engine commit path mutates it
package manifest

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"

	"feedvault/internal/core/interval"
	perr "feedvault/internal/platform/errors"
	"feedvault/internal/platform/logger"
)

// Persister stores the encoded document
type Persister interface {
	// Read returns nil, nil when nothing was stored yet
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, doc []byte) error
	String() string
}

// Updater is a Persister shared between processes. Update hands fn the stored
// document and writes what fn returns, atomically with respect to other writers.
// fn may run more than once
type Updater interface {
	Update(ctx context.Context, fn func(stored []byte) ([]byte, error)) error
}

// Manifest is the in memory coverage mapping backed by a Persister
type Manifest struct {
	p   Persister
	log logger.Logger

	// writeMu orders merge, persist and publish across identities
	writeMu sync.Mutex

	mu  sync.RWMutex
	cov map[string]interval.Set
}

// Load reads the mapping from p
// a missing or unreadable document yields an empty mapping and a warning
func Load(ctx context.Context, p Persister, log logger.Logger) *Manifest {
	if p == nil {
		panic("manifest: nil persister")
	}
	m := &Manifest{p: p, log: log, cov: map[string]interval.Set{}}

	raw, err := p.Read(ctx)
	if err != nil {
		log.Warn().Err(err).Str("persister", p.String()).Msg("manifest unreadable, starting empty")
		return m
	}
	if len(raw) == 0 {
		log.Debug().Str("persister", p.String()).Msg("no manifest yet")
		return m
	}
	cov, err := Decode(raw)
	if err != nil {
		log.Warn().Err(err).Str("persister", p.String()).Msg("manifest corrupt, starting empty")
		return m
	}
	m.cov = cov
	log.Info().Int("identities", len(cov)).Str("persister", p.String()).Msg("manifest loaded")
	return m
}

// CoverageFor returns a copy of the covered set of identity, empty when unseen
func (m *Manifest) CoverageFor(identity string) interval.Set {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.cov[identity]
	if s == nil {
		return interval.Set{}
	}
	return s.Clone()
}

// RecordCoverage merges iv into the identity's set, persists the whole mapping
// and only then publishes it. A failed persist leaves memory untouched.
// With an Updater the stored document is folded in first, so coverage recorded
// by another process sharing the persister is kept and picked up
func (m *Manifest) RecordCoverage(ctx context.Context, identity string, iv interval.Interval) error {
	if strings.TrimSpace(identity) == "" {
		return perr.WithField(perr.InvalidArgf("identity is required"), "identity")
	}
	iv, err := interval.Normalize(iv)
	if err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.RLock()
	next := make(map[string]interval.Set, len(m.cov)+1)
	for k, v := range m.cov {
		next[k] = v
	}
	m.mu.RUnlock()

	merged := interval.Merge(next[identity], iv)
	if slices.Equal(merged, next[identity]) {
		return nil
	}
	next[identity] = merged

	if err := m.persist(ctx, next); err != nil {
		if perr.CodeOf(err) == perr.ErrorCodeUnknown {
			err = perr.Wrapf(err, perr.ErrorCodeStorage, "persist manifest to %s", m.p)
		}
		return err
	}

	m.mu.Lock()
	m.cov = next
	m.mu.Unlock()

	m.log.Debug().Str("identity", identity).Stringer("interval", iv).
		Int("intervals", len(merged)).Msg("coverage recorded")
	return nil
}

func (m *Manifest) persist(ctx context.Context, next map[string]interval.Set) error {
	encode := func() ([]byte, error) {
		doc, err := Encode(next)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeStorage, "encode manifest")
		}
		return doc, nil
	}
	if u, ok := m.p.(Updater); ok {
		return u.Update(ctx, func(stored []byte) ([]byte, error) {
			m.fold(next, stored)
			return encode()
		})
	}
	doc, err := encode()
	if err != nil {
		return err
	}
	return m.p.Write(ctx, doc)
}

// fold unions a stored document into cov; a corrupt one is overwritten
func (m *Manifest) fold(cov map[string]interval.Set, stored []byte) {
	if len(stored) == 0 {
		return
	}
	theirs, err := Decode(stored)
	if err != nil {
		m.log.Warn().Err(err).Str("persister", m.p.String()).Msg("stored manifest corrupt, overwriting")
		return
	}
	for id, set := range theirs {
		for _, iv := range set {
			cov[id] = interval.Merge(cov[id], iv)
		}
	}
}

// Identities lists every identity with coverage, sorted
func (m *Manifest) Identities() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.cov))
	for k := range m.cov {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Encode renders the mapping indented two spaces, keys sorted
func Encode(cov map[string]interval.Set) ([]byte, error) {
	if cov == nil {
		cov = map[string]interval.Set{}
	}
	b, err := json.MarshalIndent(cov, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Decode parses a document and re-canonicalizes every set through Merge
// so a hand edited file cannot break the set invariant
func Decode(raw []byte) (map[string]interval.Set, error) {
	var doc map[string][]interval.Interval
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "decode manifest")
	}
	out := make(map[string]interval.Set, len(doc))
	for id, ivs := range doc {
		var s interval.Set
		for _, iv := range ivs {
			s = interval.Merge(s, iv)
		}
		if len(s) > 0 {
			out[id] = s
		}
	}
	return out, nil
}
