// Package lexical is the keyword fallback used when a query has no overlap
// with the embedder vocabulary. It keeps an in-memory bleve index over the
// same nodes as the vector index.
package lexical

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"exegesis/internal/domain"
)

// Document is one node to index, addressed by its reference.
type Document struct {
	Ref  domain.NodeRef
	Text string
}

type indexedDoc struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Index wraps a memory-only bleve index.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	size  int
}

// New creates an empty index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create lexical index: %w", err)
	}
	return &Index{index: idx}, nil
}

// Build replaces the index contents with docs.
func (x *Index) Build(docs []Document) error {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("create lexical index: %w", err)
	}
	batch := idx.NewBatch()
	for _, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		if err := batch.Index(d.Ref.String(), indexedDoc{Kind: string(d.Ref.Kind), Text: d.Text}); err != nil {
			_ = idx.Close()
			return fmt.Errorf("index %s: %w", d.Ref, err)
		}
	}
	size := batch.Size()
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("commit lexical batch: %w", err)
	}

	x.mu.Lock()
	old := x.index
	x.index = idx
	x.size = size
	x.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Len returns the number of indexed documents.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.size
}

// Search runs a match query and returns up to k hits. Scores are divided by
// the best score so they fall in [0,1]. Ties are broken by reference.
func (x *Index) Search(ctx context.Context, query string, k int) ([]domain.RawHit, error) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), k, 0, false)
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	hits := make([]domain.RawHit, 0, len(res.Hits))
	top := 0.0
	for _, h := range res.Hits {
		ref, err := domain.ParseNodeRef(h.ID)
		if err != nil || h.Score <= 0 {
			continue
		}
		top = max(top, h.Score)
		hits = append(hits, domain.RawHit{Node: ref, Similarity: h.Score})
	}
	if top == 0 {
		return nil, nil
	}
	for i := range hits {
		hits[i].Similarity /= top
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Node.String() < hits[j].Node.String()
	})
	return hits, nil
}

// Close releases the underlying index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.index == nil {
		return nil
	}
	err := x.index.Close()
	x.index = nil
	return err
}
