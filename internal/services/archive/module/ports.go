package module

import (
	"context"

	"feedvault/internal/core/interval"
	"feedvault/internal/services/archive/domain"
	archivesvc "feedvault/internal/services/archive/service"
)

// Ports holds the ports exposed by the archive module
type Ports struct {
	Service  domain.ServicePort
	Resolver domain.Resolver
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// adaptArchivePort adapts the engine to the domain port interface
type adaptArchivePort struct{ svc *archivesvc.Service }

// EnsureCoverage implements the domain ServicePort interface
func (a adaptArchivePort) EnsureCoverage(ctx context.Context, identity string, start, end interval.Date, fetch domain.FetchFunc) (domain.Report, error) {
	return a.svc.EnsureCoverage(ctx, identity, start, end, fetch)
}

// EnsureAndGetPosts implements the domain ServicePort interface
func (a adaptArchivePort) EnsureAndGetPosts(ctx context.Context, identities []string, start, end interval.Date) ([]domain.Post, []domain.PartialFailure, error) {
	return a.svc.EnsureAndGetPosts(ctx, identities, start, end)
}

// GetPosts implements the domain ServicePort interface
func (a adaptArchivePort) GetPosts(ctx context.Context, identities []string, start, end interval.Date) ([]domain.Post, error) {
	return a.svc.GetPosts(ctx, identities, start, end)
}

// Plan implements the domain ServicePort interface
func (a adaptArchivePort) Plan(ctx context.Context, identity string, start, end interval.Date) ([]interval.Interval, error) {
	return a.svc.Plan(ctx, identity, start, end)
}

// Coverage implements the domain ServicePort interface
func (a adaptArchivePort) Coverage(identity string) interval.Set { return a.svc.Coverage(identity) }
