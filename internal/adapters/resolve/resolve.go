// Package resolve turns free text handles into canonical identities
//
// Pipeline
//  1. drop invalid UTF-8 and trim
//  2. strip a profile URL down to its first path segment
//  3. strip leading @
//  4. NFKC, case fold, drop format chars, width fold
//  5. validate the result
package resolve

import (
	"net/url"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	perr "feedvault/internal/platform/errors"
	"feedvault/internal/services/archive/domain"
)

// MaxLen bounds a canonical identity
const MaxLen = 64

// profileHosts are stripped when a handle is pasted as a profile link
var profileHosts = map[string]bool{
	"x.com":              true,
	"www.x.com":          true,
	"mobile.x.com":       true,
	"twitter.com":        true,
	"www.twitter.com":    true,
	"mobile.twitter.com": true,
}

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
		)
	},
}

// Resolver canonicalizes handles, safe for concurrent use
type Resolver struct {
	// Hosts overrides the recognised profile hosts when non empty
	Hosts map[string]bool
}

var _ domain.Resolver = (*Resolver)(nil)

// New returns a Resolver with the default profile hosts
func New() *Resolver { return &Resolver{} }

// Resolve returns the canonical identity for raw
func (r *Resolver) Resolve(raw string) (string, error) {
	s := strings.TrimSpace(strings.ToValidUTF8(raw, ""))
	s = r.stripURL(s)
	s = strings.TrimLeft(s, "@")

	tr := chainPool.Get().(transform.Transformer)
	s, _, _ = transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	s = strings.TrimSpace(s)
	if err := validate(s); err != nil {
		return "", perr.WithField(perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "invalid identity %q", raw), "identity")
	}
	return s, nil
}

// ResolveAll resolves every handle and drops repeats, keeping input order
func (r *Resolver) ResolveAll(raws []string) ([]string, error) {
	out := make([]string, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		id, err := r.Resolve(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (r *Resolver) stripURL(s string) string {
	hosts := r.Hosts
	if len(hosts) == 0 {
		hosts = profileHosts
	}
	candidate := s
	if !strings.Contains(candidate, "://") {
		host, _, _ := strings.Cut(candidate, "/")
		if !hosts[strings.ToLower(host)] {
			return s
		}
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil || !hosts[strings.ToLower(u.Hostname())] {
		return s
	}
	first, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	return first
}

func validate(s string) error {
	if s == "" {
		return perr.New(perr.ErrorCodeInvalidArgument, "empty")
	}
	if len(s) > MaxLen {
		return perr.Newf(perr.ErrorCodeInvalidArgument, "longer than %d bytes", MaxLen)
	}
	for _, c := range s {
		if unicode.IsSpace(c) || c == '/' || c == '?' || c == '#' || c == '@' || unicode.IsControl(c) {
			return perr.Newf(perr.ErrorCodeInvalidArgument, "contains %q", c)
		}
	}
	return nil
}
