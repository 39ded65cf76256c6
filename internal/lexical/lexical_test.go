package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exegesis/internal/domain"
)

func TestSearchNormalizesScores(t *testing.T) {
	x, err := New()
	require.NoError(t, err)
	defer x.Close()

	require.NoError(t, x.Build([]Document{
		{Ref: domain.NodeRef{Kind: domain.KindTarget, Key: "2:47"}, Text: "Your right is to action alone, never to its fruits."},
		{Ref: domain.NodeRef{Kind: domain.KindConcept, Key: "karma"}, Text: "karma: action"},
		{Ref: domain.NodeRef{Kind: domain.KindEvidence, Key: "2:47_Advaita"}, Text: "Action performed without desire purifies the mind."},
		{Ref: domain.NodeRef{Kind: domain.KindTarget, Key: "3:35"}, Text: "   "},
	}))
	assert.Equal(t, 3, x.Len())

	hits, err := x.Search(context.Background(), "action", 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 1.0, hits[0].Similarity)
	for _, h := range hits {
		assert.Greater(t, h.Similarity, 0.0)
		assert.LessOrEqual(t, h.Similarity, 1.0)
	}

	none, err := x.Search(context.Background(), "moksha", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearchEmptyQuery(t *testing.T) {
	x, err := New()
	require.NoError(t, err)
	defer x.Close()
	hits, err := x.Search(context.Background(), "  ", 5)
	require.NoError(t, err)
	assert.Nil(t, hits)
}
