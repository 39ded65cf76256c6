package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBeforePrepare(t *testing.T) {
	_, err := NewEmbedder().Encode(context.Background(), []string{"dharma"}, true)
	assert.ErrorIs(t, err, ErrNotPrepared)
}

func TestPrepareRejectsEmptyCorpus(t *testing.T) {
	assert.Error(t, NewEmbedder().Prepare(nil))
	assert.Error(t, NewEmbedder().Prepare([]string{"the and of"}))
}

func TestEncodeNormalizesAndIsDeterministic(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare([]string{
		"Dharma is righteous duty.",
		"Moksha is liberation from rebirth.",
		"Karma binds through desire for fruit.",
	}))
	assert.Equal(t, "tfidf", e.Name())
	assert.Positive(t, e.Dimension())

	ctx := context.Background()
	a, err := e.Encode(ctx, []string{"What is dharma?", "unknown words only"}, true)
	require.NoError(t, err)
	require.Len(t, a, 2)

	norm := 0.0
	for _, v := range a[0] {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)

	for _, v := range a[1] {
		assert.Zero(t, v)
	}

	b, err := e.Encode(ctx, []string{"What is dharma?"}, true)
	require.NoError(t, err)
	assert.Equal(t, a[0], b[0])
}

func TestEncodeWithoutNormalization(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare([]string{"dharma duty", "moksha"}))

	raw, err := e.Encode(context.Background(), []string{"dharma dharma duty"}, false)
	require.NoError(t, err)

	norm := 0.0
	for _, v := range raw[0] {
		norm += v * v
	}
	assert.NotEqual(t, 1.0, math.Sqrt(norm))
}

func TestTokenizeKeepsCombiningMarks(t *testing.T) {
	e := NewEmbedder()
	toks := e.tokenize("कर्मण्येवाधिकारस्ते karmaṇy")
	require.Len(t, toks, 2)
	assert.Equal(t, "karmaṇy", toks[1])
}

func TestEncodeHonorsCancelledContext(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare([]string{"dharma"}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Encode(ctx, []string{"dharma"}, true)
	assert.ErrorIs(t, err, context.Canceled)
}
