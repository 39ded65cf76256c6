package corpus

import (
	"sort"
	"strings"

	"exegesis/internal/domain"
)

// Node is one entry of the heterogeneous vector index.
type Node struct {
	ID   int64
	Ref  domain.NodeRef
	Text string
}

// NodeTable maps dense vector ids to typed node references. Ids are assigned
// in a fixed order (targets, concepts, evidence) so rebuilding the table over
// the same corpus yields the same ids.
type NodeTable struct {
	nodes []Node
	byRef map[domain.NodeRef]int64
}

// BuildNodeTable enumerates every indexable node of the store.
func BuildNodeTable(s *Store) *NodeTable {
	t := &NodeTable{byRef: make(map[domain.NodeRef]int64)}
	for _, id := range s.targetOrder {
		t.add(domain.NodeRef{Kind: domain.KindTarget, Key: id}, targetText(s.targets[id]))
	}
	for _, term := range s.conceptOrder {
		c := s.concepts[term]
		t.add(domain.NodeRef{Kind: domain.KindConcept, Key: term}, conceptText(c))
	}
	for _, id := range s.evidenceOrder {
		t.add(domain.NodeRef{Kind: domain.KindEvidence, Key: id}, s.evidence[id].Text)
	}
	return t
}

func (t *NodeTable) add(ref domain.NodeRef, text string) {
	id := int64(len(t.nodes))
	t.nodes = append(t.nodes, Node{ID: id, Ref: ref, Text: text})
	t.byRef[ref] = id
}

// Resolve maps a vector id back to its node reference.
func (t *NodeTable) Resolve(id int64) (domain.NodeRef, bool) {
	if id < 0 || id >= int64(len(t.nodes)) {
		return domain.NodeRef{}, false
	}
	return t.nodes[id].Ref, true
}

// Lookup returns the vector id assigned to ref.
func (t *NodeTable) Lookup(ref domain.NodeRef) (int64, bool) {
	id, ok := t.byRef[ref]
	return id, ok
}

// Nodes returns every node in id order. The slice must not be modified.
func (t *NodeTable) Nodes() []Node { return t.nodes }

func (t *NodeTable) Len() int { return len(t.nodes) }

func targetText(e domain.TargetEntity) string {
	parts := []string{e.Text}
	if e.Transliteration != "" {
		parts = append(parts, e.Transliteration)
	}
	langs := make([]string, 0, len(e.Translations))
	for lang := range e.Translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		parts = append(parts, e.Translations[lang])
	}
	return strings.Join(parts, "\n")
}

func conceptText(c domain.ConceptEntity) string {
	if c.Meaning == "" {
		return c.Term
	}
	return c.Term + ": " + c.Meaning
}
