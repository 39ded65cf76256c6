package domain

import "context"

// Embedder converts free text into fixed-length numeric vectors.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	// Encode embeds texts in order. With normalize set, every returned
	// vector has unit L2 norm (or is all zero).
	Encode(ctx context.Context, texts []string, normalize bool) ([][]float64, error)
}

// VectorIndex holds pre-embedded node vectors and answers nearest-neighbor queries.
type VectorIndex interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, ids []int64, vectors [][]float64) error
	// Search returns k parallel scores and ids. An id of NoResult marks an
	// empty slot and must be skipped by callers.
	Search(ctx context.Context, vector []float64, k int) (scores []float64, ids []int64, err error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// NoResult is the vector id reported for an unfilled search slot.
const NoResult int64 = -1

// KnowledgeStore is the read-only view over the loaded corpus. Every lookup
// reports absence through its second return value instead of failing.
type KnowledgeStore interface {
	Target(id string) (TargetEntity, bool)
	Concept(term string) (ConceptEntity, bool)
	Evidence(id string) (EvidenceItem, bool)
	EvidenceFor(targetID string) []EvidenceItem
}

// ReasonRequest is a single chat turn sent to the reasoning service.
type ReasonRequest struct {
	System    string
	User      string
	MaxTokens int
}

// Reasoner sends one request to the external reasoning service and returns
// the raw text of its answer.
type Reasoner interface {
	Complete(ctx context.Context, req ReasonRequest) (string, error)
}
