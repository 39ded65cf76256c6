package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls    int
	encoded  []string
	prepared int
}

func (c *countingEmbedder) Name() string           { return "counting" }
func (c *countingEmbedder) Dimension() int         { return 1 }
func (c *countingEmbedder) Prepare([]string) error { c.prepared++; return nil }
func (c *countingEmbedder) Encode(_ context.Context, texts []string, _ bool) ([][]float64, error) {
	c.calls++
	c.encoded = append(c.encoded, texts...)
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t))}
	}
	return out, nil
}

func TestCachedForwardsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCached(inner, 8)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := c.Encode(ctx, []string{"a", "bb"}, true)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1}, {2}}, first)

	second, err := c.Encode(ctx, []string{"bb", "ccc", "a"}, true)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2}, {3}, {1}}, second)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, []string{"a", "bb", "ccc"}, inner.encoded)

	// the normalize flag is part of the key
	_, err = c.Encode(ctx, []string{"a"}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestCachedReturnsCopies(t *testing.T) {
	c, err := NewCached(&countingEmbedder{}, 8)
	require.NoError(t, err)
	v, err := c.Encode(context.Background(), []string{"abc"}, true)
	require.NoError(t, err)
	v[0][0] = 99

	again, err := c.Encode(context.Background(), []string{"abc"}, true)
	require.NoError(t, err)
	assert.Equal(t, 3.0, again[0][0])
}

func TestCachedPrepareResets(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCached(inner, 8)
	require.NoError(t, err)
	_, _ = c.Encode(context.Background(), []string{"a"}, true)
	require.NoError(t, c.Prepare([]string{"a"}))
	_, _ = c.Encode(context.Background(), []string{"a"}, true)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 1, inner.prepared)
	assert.Equal(t, "counting", c.Name())
}
