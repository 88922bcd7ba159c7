// Package strings holds the few string helpers the platform shares
package strings

import std "strings"

// IfEmpty returns def when in has no elements
func IfEmpty[T any](in, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}

// MustString panics with "<name> is required" when s is blank
func MustString(s, name string) string {
	if std.TrimSpace(s) == "" {
		panic(name + " is required")
	}
	return s
}

// MustPrefix normalizes a mount path to one leading slash and no trailing one
// It panics on an empty path or on "/".
func MustPrefix(s string) string {
	s = "/" + std.Trim(s, " /")
	if s == "/" {
		panic("root path is required")
	}
	return s
}

// SplitCSV splits on commas and drops blank entries; nil when nothing remains
func SplitCSV(s string) []string {
	var out []string
	for part := range std.SplitSeq(s, ",") {
		if p := std.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
