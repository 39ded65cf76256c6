package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exegesis/internal/domain"
)

func loadFixture(t *testing.T) *Store {
	t.Helper()
	s, err := Load("testdata/corpus.json")
	require.NoError(t, err)
	return s
}

func TestLoadBuildsEntities(t *testing.T) {
	s := loadFixture(t)

	assert.Equal(t, []string{"2:47", "3:35"}, s.TargetIDs())
	target, ok := s.Target("2:47")
	require.True(t, ok)
	assert.Equal(t, 2, target.Group)
	assert.Equal(t, 47, target.Index)
	assert.Equal(t, "action", target.Glosses["karma"])
	assert.Contains(t, target.Translations["english"], "prescribed duty")

	_, ok = s.Target("9:99")
	assert.False(t, ok)
}

func TestLoadConceptMembershipGrowsInCorpusOrder(t *testing.T) {
	s := loadFixture(t)

	dharma, ok := s.Concept("dharma")
	require.True(t, ok)
	assert.Equal(t, []string{"2:47", "3:35"}, dharma.MentionedIn)
	assert.Equal(t, "duty", dharma.Meaning)

	karma, ok := s.Concept("karma")
	require.True(t, ok)
	assert.Equal(t, []string{"2:47"}, karma.MentionedIn)

	dharma.MentionedIn[0] = "mutated"
	again, _ := s.Concept("dharma")
	assert.Equal(t, "2:47", again.MentionedIn[0])
}

func TestLoadExcludesMissingAndEmptyEvidence(t *testing.T) {
	s := loadFixture(t)

	items := s.EvidenceFor("2:47")
	require.Len(t, items, 2)
	assert.Equal(t, "Advaita Vedanta", items[0].School)
	assert.Equal(t, "2:47_Advaita Vedanta", items[0].ID)
	assert.Equal(t, domain.StatusPresent, items[0].Status)
	assert.Equal(t, domain.StatusSubstituted, items[1].Status)
	assert.Equal(t, "Vedanta Desika", items[1].Author())

	_, ok := s.Evidence("2:47_Dvaita Vedanta")
	assert.False(t, ok)
	assert.Empty(t, s.EvidenceFor("3:35"))

	assert.Equal(t, []string{"Advaita Vedanta", "Sri Vaisnava Sampradaya"}, s.Schools())
	assert.Equal(t, []string{"Shankaracharya", "Vedanta Desika"}, s.Authors())
	assert.Equal(t, Stats{Targets: 2, Concepts: 2, Evidence: 2, Schools: 2, Authors: 2}, s.Stats())
}

func TestParseRejectsMissingRoot(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"other": []}`))
	assert.ErrorIs(t, err, ErrInvalidCorpus)

	_, err = Parse(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "fi ligature", NormalizeText("  ﬁ ligature\x00 "))
	assert.Equal(t, "line\nbreak", NormalizeText("line\nbreak"))
}

func TestNodeTableIsDeterministic(t *testing.T) {
	s := loadFixture(t)
	a := BuildNodeTable(s)
	b := BuildNodeTable(s)
	require.Equal(t, a.Nodes(), b.Nodes())
	assert.Equal(t, 2+2+2, a.Len())

	ref, ok := a.Resolve(0)
	require.True(t, ok)
	assert.Equal(t, domain.NodeRef{Kind: domain.KindTarget, Key: "2:47"}, ref)

	id, ok := a.Lookup(domain.NodeRef{Kind: domain.KindConcept, Key: "dharma"})
	require.True(t, ok)
	got, _ := a.Resolve(id)
	assert.Equal(t, "dharma", got.Key)

	_, ok = a.Resolve(-1)
	assert.False(t, ok)
	_, ok = a.Resolve(int64(a.Len()))
	assert.False(t, ok)

	assert.Contains(t, a.Nodes()[0].Text, "prescribed duty")
}

func TestBuildSubgraph(t *testing.T) {
	s := loadFixture(t)
	t247, _ := s.Target("2:47")
	t335, _ := s.Target("3:35")
	results := []domain.SearchResult{
		{Target: t247, Score: 0.9, Concepts: []string{"dharma", "karma"}, Evidence: s.EvidenceFor("2:47")},
		{Target: t335, Score: 0.7, Concepts: []string{"dharma"}},
	}

	g := BuildSubgraph(results)

	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{
		"target:2:47", "concept:dharma", "concept:karma",
		"evidence:2:47_Advaita Vedanta", "evidence:2:47_Sri Vaisnava Sampradaya",
		"target:3:35",
	}, ids)
	assert.Len(t, g.Edges, 5)
	assert.Equal(t, GraphEdge{Source: "target:3:35", Target: "concept:dharma", Relationship: RelMentions}, g.Edges[4])
	assert.Equal(t, RelCommentsOn, g.Edges[2].Relationship)
}
