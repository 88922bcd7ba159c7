package domain

import "feedvault/internal/core/interval"

// RangeInput selects posts for a set of identities over a date range
type RangeInput struct {
	Identities []string `json:"identities" validate:"required,min=1,max=100,dive,required,max=200" example:"jack"`
	Start      string   `json:"start" validate:"required,datetime=2006-01-02" example:"2024-01-01"`
	End        string   `json:"end" validate:"required,datetime=2006-01-02" example:"2024-01-31"`
}

// PlanInput previews the gaps of one identity
type PlanInput struct {
	Identity string `json:"identity" validate:"required,max=200" example:"jack"`
	Start    string `json:"start" validate:"required,datetime=2006-01-02" example:"2024-01-01"`
	End      string `json:"end" validate:"required,datetime=2006-01-02" example:"2024-01-31"`
}

// EnsureResp is the body of an ensure call
type EnsureResp struct {
	Posts    []Post           `json:"posts"`
	Failures []PartialFailure `json:"failures"`
}

// PlanResp lists the intervals an ensure call would fetch
type PlanResp struct {
	Identity string              `json:"identity"`
	Gaps     []interval.Interval `json:"gaps"`
}

// CoverageResp lists the covered intervals of one identity
type CoverageResp struct {
	Identity string              `json:"identity"`
	Covered  []interval.Interval `json:"covered"`
	Days     int                 `json:"days"`
}
