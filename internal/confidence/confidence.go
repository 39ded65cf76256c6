// Package confidence blends structural evidence coverage with a
// service-reported confidence.
package confidence

import (
	"math"

	"exegesis/internal/domain"
)

// fullCoverageSchools is the school count treated as complete coverage.
const fullCoverageSchools = 4

// Input describes one synthesis for scoring.
type Input struct {
	// Cited holds the offered excerpts whose ids survived validation.
	Cited []domain.Excerpt
	// TotalSchools is the distinct school count of the whole evidence pool.
	TotalSchools int
	// Offered is the number of excerpts sent to the reasoning service.
	Offered int
	// External is the service's own confidence, nil when it reported none.
	External *float64
}

// Estimate returns the hybrid confidence in [0,1]. It is exactly 0 when
// nothing is cited.
func Estimate(in Input) float64 {
	if len(in.Cited) == 0 {
		return 0
	}
	schools := make(map[string]struct{}, len(in.Cited))
	for _, e := range in.Cited {
		schools[e.School] = struct{}{}
	}

	denom := min(in.TotalSchools, fullCoverageSchools)
	if denom <= 0 {
		denom = 1
	}
	coverage := float64(len(schools)) / float64(denom)

	offered := in.Offered
	if offered <= 0 {
		offered = len(in.Cited)
	}
	support := float64(len(in.Cited)) / float64(offered)

	computed := 0.2*coverage + 0.1*support
	final := computed
	if in.External != nil && !math.IsNaN(*in.External) && !math.IsInf(*in.External, 0) {
		final = 0.5*(*in.External) + 0.5*computed
	}
	return Clamp(final)
}

// Clamp limits v to [0,1]. NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
