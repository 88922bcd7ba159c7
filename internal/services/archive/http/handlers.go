// Package http provides the http transport for the archive
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"feedvault/internal/core/interval"
	"feedvault/internal/modkit/httpkit"
	perr "feedvault/internal/platform/errors"
	"feedvault/internal/services/archive/domain"
)

// Register mounts archive endpoints on the given router
func Register(r httpkit.Router, s domain.ServicePort, res domain.Resolver) {
	h := &handlers{svc: s, res: res}
	httpkit.PostJSON[domain.RangeInput](r, "/posts/query", h.query)
	httpkit.PostJSON[domain.RangeInput](r, "/posts/ensure", h.ensure)
	httpkit.PostJSON[domain.PlanInput](r, "/coverage/plan", h.plan)
	httpkit.Get(r, "/coverage/{identity}", h.coverage)
}

type handlers struct {
	svc domain.ServicePort
	res domain.Resolver
}

// swagger:route POST /archive/posts/query Archive archiveQuery
// @Summary Stored posts for identities over a date range
// @Description Read only. Never contacts the content source.
// @Tags Archive
// @Accept json
// @Produce json
// @Param payload body domain.RangeInput true "Range"
// @Success 200 {array} domain.Post "ok"
// @Router /archive/posts/query [post]
func (h *handlers) query(r *stdhttp.Request, in domain.RangeInput) (any, error) {
	ids, iv, err := h.rangeOf(in)
	if err != nil {
		return nil, err
	}
	return h.svc.GetPosts(r.Context(), ids, iv.Start, iv.End)
}

// swagger:route POST /archive/posts/ensure Archive archiveEnsure
// @Summary Fetch missing days then return stored posts
// @Description Gaps that fail are reported in failures; covered days are still returned.
// @Tags Archive
// @Accept json
// @Produce json
// @Param payload body domain.RangeInput true "Range"
// @Success 200 {object} domain.EnsureResp "ok"
// @Router /archive/posts/ensure [post]
func (h *handlers) ensure(r *stdhttp.Request, in domain.RangeInput) (any, error) {
	ids, iv, err := h.rangeOf(in)
	if err != nil {
		return nil, err
	}
	posts, failures, err := h.svc.EnsureAndGetPosts(r.Context(), ids, iv.Start, iv.End)
	if err != nil {
		return nil, err
	}
	if failures == nil {
		failures = []domain.PartialFailure{}
	}
	return domain.EnsureResp{Posts: posts, Failures: failures}, nil
}

// swagger:route POST /archive/coverage/plan Archive archivePlan
// @Summary Preview the gaps an ensure call would fetch
// @Tags Archive
// @Accept json
// @Produce json
// @Param payload body domain.PlanInput true "Range"
// @Success 200 {object} domain.PlanResp "ok"
// @Router /archive/coverage/plan [post]
func (h *handlers) plan(r *stdhttp.Request, in domain.PlanInput) (any, error) {
	id, err := h.res.Resolve(in.Identity)
	if err != nil {
		return nil, err
	}
	iv, err := interval.Parse(in.Start, in.End)
	if err != nil {
		return nil, err
	}
	gaps, err := h.svc.Plan(r.Context(), id, iv.Start, iv.End)
	if err != nil {
		return nil, err
	}
	return domain.PlanResp{Identity: id, Gaps: gaps}, nil
}

// swagger:route GET /archive/coverage/{identity} Archive archiveCoverage
// @Summary Covered intervals of one identity
// @Tags Archive
// @Produce json
// @Param identity path string true "Identity or profile url"
// @Success 200 {object} domain.CoverageResp "ok"
// @Router /archive/coverage/{identity} [get]
func (h *handlers) coverage(r *stdhttp.Request) (any, error) {
	id, err := h.res.Resolve(chi.URLParam(r, "identity"))
	if err != nil {
		return nil, err
	}
	set := h.svc.Coverage(id)
	covered := []interval.Interval(set)
	if covered == nil {
		covered = []interval.Interval{}
	}
	return domain.CoverageResp{Identity: id, Covered: covered, Days: set.Days()}, nil
}

// rangeOf resolves every identity and parses the date range
func (h *handlers) rangeOf(in domain.RangeInput) ([]string, interval.Interval, error) {
	ids := make([]string, 0, len(in.Identities))
	seen := make(map[string]bool, len(in.Identities))
	for _, raw := range in.Identities {
		id, err := h.res.Resolve(raw)
		if err != nil {
			return nil, interval.Interval{}, perr.WithField(err, "identities")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	iv, err := interval.Parse(in.Start, in.End)
	if err != nil {
		return nil, interval.Interval{}, err
	}
	return ids, iv, nil
}
