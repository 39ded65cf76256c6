package confidence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"exegesis/internal/domain"
)

func excerpts(schools ...string) []domain.Excerpt {
	out := make([]domain.Excerpt, len(schools))
	for i, s := range schools {
		out[i] = domain.Excerpt{ID: s + "_id", School: s}
	}
	return out
}

func ptr(v float64) *float64 { return &v }

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want float64
	}{
		{"nothing cited", Input{TotalSchools: 5, Offered: 8, External: ptr(0.9)}, 0},
		{"computed only", Input{Cited: excerpts("A", "B"), TotalSchools: 2, Offered: 4}, 0.2*1 + 0.1*0.5},
		{"coverage denominator capped at four", Input{Cited: excerpts("A", "B"), TotalSchools: 10, Offered: 2}, 0.2*0.5 + 0.1*1},
		{"blended with external", Input{Cited: excerpts("A"), TotalSchools: 1, Offered: 1, External: ptr(0.8)}, 0.5*0.8 + 0.5*0.3},
		{"non-finite external ignored", Input{Cited: excerpts("A"), TotalSchools: 1, Offered: 1, External: ptr(math.NaN())}, 0.3},
		{"zero schools treated as one", Input{Cited: excerpts("A"), Offered: 1}, 0.3},
		{"clamped above", Input{Cited: excerpts("A"), TotalSchools: 1, Offered: 1, External: ptr(5)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Estimate(tt.in), 1e-9)
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1))
	assert.Equal(t, 0.0, Clamp(math.NaN()))
	assert.Equal(t, 1.0, Clamp(math.Inf(1)))
	assert.Equal(t, 0.42, Clamp(0.42))
}
