package retrieval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exegesis/internal/corpus"
	"exegesis/internal/domain"
)

func loadStore(t *testing.T) *corpus.Store {
	t.Helper()
	store, err := corpus.Load("../corpus/testdata/corpus.json")
	require.NoError(t, err)
	return store
}

func target(key string) domain.NodeRef { return domain.NodeRef{Kind: domain.KindTarget, Key: key} }
func concept(key string) domain.NodeRef {
	return domain.NodeRef{Kind: domain.KindConcept, Key: key}
}
func evidence(key string) domain.NodeRef {
	return domain.NodeRef{Kind: domain.KindEvidence, Key: key}
}

func TestAggregateDirectAndConcept(t *testing.T) {
	agg := NewAggregator(loadStore(t), DefaultWeights(), nil)
	results := agg.Aggregate([]domain.RawHit{
		{Node: target("2:47"), Similarity: 0.9},
		{Node: concept("dharma"), Similarity: 0.7},
	}, 10)

	require.Len(t, results, 2)
	assert.Equal(t, "2:47", results[0].Target.ID)
	assert.Equal(t, "3:35", results[1].Target.ID)
	assert.Greater(t, results[0].Score, results[1].Score)

	// mean(0.9, 0.56) + 0.1 concept + 0.1 support
	assert.InDelta(t, 0.93, results[0].Score, 1e-9)
	// 0.56 + 0.1 concept + 0.05 support
	assert.InDelta(t, 0.71, results[1].Score, 1e-9)

	assert.Contains(t, results[0].Provenance, "Query → TargetEntity(2:47)")
	assert.Equal(t, []string{"Query → Concept(dharma) → TargetEntity(3:35)"}, results[1].Provenance)
	assert.Equal(t, []string{"dharma"}, results[1].Concepts)
	assert.Equal(t, 2, results[0].SupportCount)
	assert.Len(t, results[0].Evidence, 2)
}

func TestAggregateConceptBoostCountsDistinctTerms(t *testing.T) {
	agg := NewAggregator(loadStore(t), DefaultWeights(), nil)
	results := agg.Aggregate([]domain.RawHit{
		{Node: concept("dharma"), Similarity: 0.5},
		{Node: concept("dharma"), Similarity: 0.5},
		{Node: concept("karma"), Similarity: 0.5},
	}, 0)

	require.Len(t, results, 2)
	top := results[0]
	assert.Equal(t, "2:47", top.Target.ID)
	assert.Equal(t, []string{"dharma", "karma"}, top.Concepts)
	assert.Equal(t, 3, top.SupportCount)
	// 0.4 mean + 2 * 0.1 + 0.15 support
	assert.InDelta(t, 0.75, top.Score, 1e-9)
	assert.Len(t, top.Provenance, 2)
}

func TestAggregateEvidenceHit(t *testing.T) {
	agg := NewAggregator(loadStore(t), DefaultWeights(), nil)
	results := agg.Aggregate([]domain.RawHit{
		{Node: evidence("2:47_Advaita Vedanta"), Similarity: 1.0},
	}, 5)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.95, results[0].Score, 1e-9)
	assert.Equal(t, []string{"Query → Evidence(Advaita Vedanta) → TargetEntity(2:47)"}, results[0].Provenance)
}

func TestAggregateSkipsUnresolvedAndBadScores(t *testing.T) {
	agg := NewAggregator(loadStore(t), DefaultWeights(), nil)
	results := agg.Aggregate([]domain.RawHit{
		{Node: target("18:66"), Similarity: 0.9},
		{Node: concept("moksha"), Similarity: 0.9},
		{Node: evidence("3:35_Advaita Vedanta"), Similarity: 0.9},
		{Node: target("3:35"), Similarity: math.NaN()},
		{Node: target("3:35"), Similarity: -0.4},
	}, 5)

	require.Len(t, results, 1)
	assert.Equal(t, "3:35", results[0].Target.ID)
	assert.InDelta(t, 0.05, results[0].Score, 1e-9)
	for _, r := range results {
		assert.False(t, math.IsNaN(r.Score) || math.IsInf(r.Score, 0))
		assert.GreaterOrEqual(t, r.Score, 0.0)
	}
}

func TestAggregateEmptyAndTruncated(t *testing.T) {
	agg := NewAggregator(loadStore(t), DefaultWeights(), nil)
	assert.Empty(t, agg.Aggregate(nil, 5))

	results := agg.Aggregate([]domain.RawHit{{Node: concept("dharma"), Similarity: 0.5}}, 1)
	require.Len(t, results, 1)
	assert.Equal(t, "2:47", results[0].Target.ID)
}

func TestAggregateIsIdempotent(t *testing.T) {
	agg := NewAggregator(loadStore(t), DefaultWeights(), nil)
	hits := []domain.RawHit{
		{Node: concept("dharma"), Similarity: 0.33},
		{Node: evidence("2:47_Sri Vaisnava Sampradaya"), Similarity: 0.61},
		{Node: target("3:35"), Similarity: 0.2},
	}
	assert.Equal(t, agg.Aggregate(hits, 0), agg.Aggregate(hits, 0))
}
