package corpus

import (
	"exegesis/internal/domain"
)

const (
	subgraphResults     = 10
	subgraphConcepts    = 3
	subgraphEvidence    = 2
	subgraphPreviewRune = 200
)

// Relationship labels for subgraph edges.
const (
	RelMentions   = "MENTIONS"
	RelCommentsOn = "COMMENTS_ON"
)

// GraphNode is a node of a result subgraph.
type GraphNode struct {
	ID      string          `json:"id"`
	Kind    domain.NodeKind `json:"kind"`
	Label   string          `json:"label"`
	Score   float64         `json:"score,omitempty"`
	School  string          `json:"school,omitempty"`
	Author  string          `json:"author,omitempty"`
	Preview string          `json:"preview,omitempty"`
}

// GraphEdge links two subgraph nodes.
type GraphEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship"`
}

// Subgraph is the neighborhood of a ranked result list.
type Subgraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// BuildSubgraph links the top results to a few of their concepts and
// commentaries. Node ids are de-duplicated across results.
func BuildSubgraph(results []domain.SearchResult) Subgraph {
	g := Subgraph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	seen := make(map[string]struct{})
	addNode := func(n GraphNode) {
		if _, ok := seen[n.ID]; ok {
			return
		}
		seen[n.ID] = struct{}{}
		g.Nodes = append(g.Nodes, n)
	}

	if len(results) > subgraphResults {
		results = results[:subgraphResults]
	}
	for _, r := range results {
		targetRef := domain.NodeRef{Kind: domain.KindTarget, Key: r.Target.ID}.String()
		addNode(GraphNode{
			ID:      targetRef,
			Kind:    domain.KindTarget,
			Label:   r.Target.ID,
			Score:   r.Score,
			Preview: preview(r.Target.Text, 100),
		})

		concepts := r.Concepts
		if len(concepts) > subgraphConcepts {
			concepts = concepts[:subgraphConcepts]
		}
		for _, term := range concepts {
			ref := domain.NodeRef{Kind: domain.KindConcept, Key: term}.String()
			addNode(GraphNode{ID: ref, Kind: domain.KindConcept, Label: term})
			g.Edges = append(g.Edges, GraphEdge{Source: targetRef, Target: ref, Relationship: RelMentions})
		}

		evidence := r.Evidence
		if len(evidence) > subgraphEvidence {
			evidence = evidence[:subgraphEvidence]
		}
		for _, e := range evidence {
			ref := domain.NodeRef{Kind: domain.KindEvidence, Key: e.ID}.String()
			addNode(GraphNode{
				ID:      ref,
				Kind:    domain.KindEvidence,
				Label:   e.School,
				School:  e.School,
				Author:  e.Author(),
				Preview: preview(e.Text, subgraphPreviewRune),
			})
			g.Edges = append(g.Edges, GraphEdge{Source: ref, Target: targetRef, Relationship: RelCommentsOn})
		}
	}
	return g
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
