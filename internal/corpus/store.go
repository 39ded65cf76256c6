package corpus

import (
	"slices"

	"exegesis/internal/domain"
)

// Store is the read-only knowledge store built from a corpus file. It is
// never mutated after Load returns and is safe for concurrent readers.
type Store struct {
	targets       map[string]domain.TargetEntity
	targetOrder   []string
	concepts      map[string]domain.ConceptEntity
	conceptOrder  []string
	evidence      map[string]domain.EvidenceItem
	evidenceOrder []string
	byTarget      map[string][]domain.EvidenceItem
	schools       []string
	authors       []string
}

var _ domain.KnowledgeStore = (*Store)(nil)

// Target looks up a target entity by id.
func (s *Store) Target(id string) (domain.TargetEntity, bool) {
	t, ok := s.targets[id]
	return t, ok
}

// Concept looks up a concept by term.
func (s *Store) Concept(term string) (domain.ConceptEntity, bool) {
	c, ok := s.concepts[term]
	if !ok {
		return domain.ConceptEntity{}, false
	}
	c.MentionedIn = slices.Clone(c.MentionedIn)
	return c, true
}

// Evidence looks up an evidence item by id.
func (s *Store) Evidence(id string) (domain.EvidenceItem, bool) {
	e, ok := s.evidence[id]
	return e, ok
}

// EvidenceFor returns the usable evidence items of a target, ordered by school.
func (s *Store) EvidenceFor(targetID string) []domain.EvidenceItem {
	return slices.Clone(s.byTarget[targetID])
}

// TargetIDs returns target ids in corpus order.
func (s *Store) TargetIDs() []string { return slices.Clone(s.targetOrder) }

// ConceptTerms returns concept terms in first-seen order.
func (s *Store) ConceptTerms() []string { return slices.Clone(s.conceptOrder) }

// EvidenceIDs returns evidence ids in corpus order.
func (s *Store) EvidenceIDs() []string { return slices.Clone(s.evidenceOrder) }

// Schools returns the sorted set of schools with at least one usable evidence item.
func (s *Store) Schools() []string { return slices.Clone(s.schools) }

// Authors returns the sorted set of credited authors.
func (s *Store) Authors() []string { return slices.Clone(s.authors) }

// Stats summarizes the corpus size.
type Stats struct {
	Targets  int `json:"targets"`
	Concepts int `json:"concepts"`
	Evidence int `json:"evidence"`
	Schools  int `json:"schools"`
	Authors  int `json:"authors"`
}

func (s *Store) Stats() Stats {
	return Stats{
		Targets:  len(s.targets),
		Concepts: len(s.concepts),
		Evidence: len(s.evidence),
		Schools:  len(s.schools),
		Authors:  len(s.authors),
	}
}
