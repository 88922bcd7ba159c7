// Package config reads typed settings from prefixed environment variables
//
// Must* getters panic through the logger when a value is missing or malformed.
// May* getters fall back to their default and log a warning for malformed values.
package config

import (
	"strconv"
	"strings"
	"time"

	"feedvault/internal/platform/config/raw"
	"feedvault/internal/platform/logger"
	pstrings "feedvault/internal/platform/strings"
)

// Conf is a prefixed view over the environment, e.g. New().Prefix("CORE_ARCHIVE_")
type Conf struct{ env raw.Conf }

// New returns the unprefixed view
func New() Conf { return Conf{} }

// Prefix returns a child view with p appended to the prefix
func (c Conf) Prefix(p string) Conf { return Conf{env: c.env.Prefix(p)} }

func (c Conf) key(k string) string { return c.env.Key(k) }

func (c Conf) lookup(k string) string { return c.env.Get(k, "") }

func must[T any](c Conf, key, what string, parse func(string) (T, error)) T {
	s := c.lookup(key)
	if s == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required env")
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Panic().Str("key", c.key(key)).Str("value", s).Msg("invalid " + what)
	}
	return v
}

func may[T any](c Conf, key, what string, def T, parse func(string) (T, error)) T {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Interface("default", def).
			Msg("invalid " + what + "; using default")
		return def
	}
	return v
}

func asString(s string) (string, error) { return s, nil }

// MustString returns the trimmed value or panics when blank
func (c Conf) MustString(key string) string { return must(c, key, "string", asString) }

// MustDuration returns a Go duration such as 250ms or 2m, or panics
func (c Conf) MustDuration(key string) time.Duration {
	return must(c, key, "duration", time.ParseDuration)
}

// MayString returns the trimmed value or def
func (c Conf) MayString(key, def string) string { return c.env.Get(key, def) }

// MayInt returns the value or def
func (c Conf) MayInt(key string, def int) int { return may(c, key, "int", def, strconv.Atoi) }

// MayBool accepts anything strconv.ParseBool does
func (c Conf) MayBool(key string, def bool) bool { return may(c, key, "bool", def, strconv.ParseBool) }

// MayDuration returns the value or def
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, "duration", def, time.ParseDuration)
}

// MayCSV splits a comma separated value, dropping blanks; def when nothing remains
func (c Conf) MayCSV(key string, def []string) []string {
	if out := pstrings.SplitCSV(c.lookup(key)); out != nil {
		return out
	}
	return def
}

// MayEnum returns the allowed spelling matching the value case insensitively, or def when unset
// An unknown value panics: a typo in a backend name must not silently pick the default.
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.lookup(key)
	if v == "" {
		return def
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
