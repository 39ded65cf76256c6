package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exegesis/internal/domain"
)

func TestSearchPadsAndOrders(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []int64{5, 3, 9}, [][]float64{{1, 0}, {0, 1}, {1, 0}}))

	scores, ids, err := s.Search(ctx, []float64{1, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 9, 3, domain.NoResult, domain.NoResult}, ids)
	assert.Equal(t, []float64{1, 1, 0, 0, 0}, scores)
}

func TestUpsertReplacesExistingID(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []int64{1}, [][]float64{{1, 0}}))
	require.NoError(t, s.Upsert(ctx, []int64{1}, [][]float64{{0, 1}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	scores, ids, err := s.Search(ctx, []float64{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
	assert.Equal(t, []float64{1}, scores)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	assert.Error(t, s.Init(ctx, 0))
	require.NoError(t, s.Init(ctx, 2))
	assert.Error(t, s.Upsert(ctx, []int64{1, 2}, [][]float64{{1, 0}}))
	assert.Error(t, s.Upsert(ctx, []int64{1}, [][]float64{{1, 0, 0}}))
	_, _, err := s.Search(ctx, []float64{1}, 1)
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.Upsert(ctx, []int64{1, 2}, [][]float64{{1}, {1}}))
	require.NoError(t, s.Clear(ctx))
	_, ids, err := s.Search(ctx, []float64{1}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{domain.NoResult, domain.NoResult}, ids)
}
