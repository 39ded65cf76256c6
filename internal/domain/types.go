package domain

import (
	"fmt"
	"strings"
)

// NodeKind tags the entity type behind a vector in the heterogeneous index.
type NodeKind string

const (
	KindTarget   NodeKind = "target"
	KindConcept  NodeKind = "concept"
	KindEvidence NodeKind = "evidence"
)

// NodeRef is a typed reference to an indexed node, written as "kind:key".
type NodeRef struct {
	Kind NodeKind
	Key  string
}

func (r NodeRef) String() string { return string(r.Kind) + ":" + r.Key }

// ParseNodeRef parses the "kind:key" form. Only the first colon separates the
// kind, so keys such as "2:47" survive intact.
func ParseNodeRef(s string) (NodeRef, error) {
	kind, key, ok := strings.Cut(s, ":")
	if !ok || key == "" {
		return NodeRef{}, fmt.Errorf("malformed node ref %q", s)
	}
	switch NodeKind(kind) {
	case KindTarget, KindConcept, KindEvidence:
		return NodeRef{Kind: NodeKind(kind), Key: key}, nil
	}
	return NodeRef{}, fmt.Errorf("unknown node kind %q in %q", kind, s)
}

// TargetEntity is a unit of primary text returned as a search result.
type TargetEntity struct {
	ID              string
	Group           int
	Index           int
	Text            string
	Transliteration string
	Translations    map[string]string
	Glosses         map[string]string
}

// ConceptEntity is a glossed term and the ordered list of targets mentioning it.
type ConceptEntity struct {
	Term        string
	Meaning     string
	MentionedIn []string
}

// EvidenceStatus describes whether a commentary is the school's own text.
type EvidenceStatus string

const (
	StatusPresent     EvidenceStatus = "present"
	StatusSubstituted EvidenceStatus = "substituted"
	StatusMissing     EvidenceStatus = "missing"
)

// EvidenceItem is a commentary on a target entity written from one school.
type EvidenceItem struct {
	ID               string
	School           string
	Status           EvidenceStatus
	OriginalAuthor   string
	SubstituteAuthor string
	Text             string
	TargetID         string
}

// Usable reports whether the item may be indexed or offered as evidence.
func (e EvidenceItem) Usable() bool {
	return e.Status != StatusMissing && strings.TrimSpace(e.Text) != ""
}

// Author returns the original author, or the substitute when none is recorded.
func (e EvidenceItem) Author() string {
	if e.OriginalAuthor != "" {
		return e.OriginalAuthor
	}
	return e.SubstituteAuthor
}

// RawHit is one resolved vector-index hit.
type RawHit struct {
	Node       NodeRef
	Similarity float64
}

// SearchResult is one ranked target entity with the trail that led to it.
type SearchResult struct {
	Target       TargetEntity
	Score        float64
	Provenance   []string
	Concepts     []string
	Evidence     []EvidenceItem
	SupportCount int
}

// Excerpt is a snippet of an evidence item offered for grounding.
type Excerpt struct {
	ID         string
	School     string
	Text       string
	Similarity float64
	Source     *EvidenceItem
}

// Direction is the interpretive orientation reported by a synthesis.
type Direction string

const (
	DirectionPracticalAction      Direction = "practical_action"
	DirectionRenunciation         Direction = "renunciation"
	DirectionDevotional           Direction = "devotional"
	DirectionJnana                Direction = "jnana"
	DirectionMixed                Direction = "mixed"
	DirectionInsufficientEvidence Direction = "insufficient_evidence"
)

var directions = map[Direction]struct{}{
	DirectionPracticalAction:      {},
	DirectionRenunciation:         {},
	DirectionDevotional:           {},
	DirectionJnana:                {},
	DirectionMixed:                {},
	DirectionInsufficientEvidence: {},
}

// ParseDirection maps s onto the closed direction set, returning false when
// s is not a member.
func ParseDirection(s string) (Direction, bool) {
	d := Direction(strings.TrimSpace(s))
	_, ok := directions[d]
	return d, ok
}

// SynthesisSource records which path produced a SynthesisResult.
type SynthesisSource string

const (
	SourceStructured   SynthesisSource = "structured"
	SourceRecovered    SynthesisSource = "recovered"
	SourceFallback     SynthesisSource = "fallback"
	SourceInsufficient SynthesisSource = "insufficient"
)

// SynthesisResult is the validated answer of the reasoning service.
type SynthesisResult struct {
	Summary         string          `json:"summary"`
	Direction       Direction       `json:"direction"`
	CitedExcerptIDs []string        `json:"cited_excerpt_ids"`
	CitedSchools    []string        `json:"cited_schools"`
	Confidence      float64         `json:"confidence"`
	Note            string          `json:"note"`
	Source          SynthesisSource `json:"source"`
}

// Answer bundles a synthesis with the retrieval output that grounded it.
type Answer struct {
	Query     string
	Results   []SearchResult
	Excerpts  []Excerpt
	Synthesis SynthesisResult
}
