// Package version reports the build stamped into the binaries
package version

// BuildInfo identifies one build of a binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// set with -ldflags "-X feedvault/internal/core/version.version=v0.1.0 -X ...commit=abcd -X ...date=2026-01-01"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns the build info for service
func Info(service string) BuildInfo {
	return BuildInfo{Service: service, Version: version, Commit: commit, Date: date}
}
