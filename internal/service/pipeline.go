// Package service wires the retrieval and synthesis stages into the query
// pipeline shared by the CLI and the TUI.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"exegesis/internal/corpus"
	"exegesis/internal/domain"
	"exegesis/internal/excerpt"
	"exegesis/internal/lexical"
	"exegesis/internal/reasoner"
	"exegesis/internal/retrieval"
	"exegesis/internal/summarizer"
	"exegesis/internal/synthesis"
)

// ErrIndexNotBuilt is returned by queries issued before BuildIndex.
var ErrIndexNotBuilt = errors.New("index not built")

// zeroScore is the similarity at or below which a vector hit carries no signal.
const zeroScore = 1e-9

const (
	defaultTopK  = 5
	upsertBatch  = 256
	digestLength = 2
)

// Options tunes the pipeline. Zero fields take defaults.
type Options struct {
	CandidateMultiplier    int
	DisableLexicalFallback bool
	// VectorStore names the index implementation for health output.
	VectorStore string
	// Model names the reasoning model for health output.
	Model string
}

// Deps are the process-lifetime collaborators. Store, Embedder, Index,
// Aggregator, Selector and Validator are required. Lexical and Digest are
// optional.
type Deps struct {
	Store      *corpus.Store
	Embedder   domain.Embedder
	Index      domain.VectorIndex
	Lexical    *lexical.Index
	Aggregator *retrieval.Aggregator
	Selector   *excerpt.Selector
	Validator  *synthesis.Validator
	Digest     *summarizer.FrequencySummarizer
	// ReasonerReady reports whether a reasoning client was configured.
	ReasonerReady bool
	// Breaker is set when the reasoning client sits behind a circuit breaker.
	Breaker *reasoner.Breaker
}

// Pipeline answers queries over a loaded corpus. After BuildIndex it is
// read-only and safe for concurrent queries.
type Pipeline struct {
	deps   Deps
	opts   Options
	logger *slog.Logger

	mu    sync.RWMutex
	nodes *corpus.NodeTable
}

func New(deps Deps, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CandidateMultiplier <= 0 {
		opts.CandidateMultiplier = 3
	}
	return &Pipeline{deps: deps, opts: opts, logger: logger}
}

// Store exposes the knowledge store.
func (p *Pipeline) Store() *corpus.Store { return p.deps.Store }

// BuildIndex embeds every node of the corpus and loads the vector and
// lexical indexes. It replaces any previous index contents.
func (p *Pipeline) BuildIndex(ctx context.Context) error {
	nodes := corpus.BuildNodeTable(p.deps.Store)
	if nodes.Len() == 0 {
		return errors.New("corpus has no indexable nodes")
	}
	all := nodes.Nodes()
	texts := make([]string, len(all))
	for i, n := range all {
		texts[i] = n.Text
	}

	if err := p.deps.Embedder.Prepare(texts); err != nil {
		return fmt.Errorf("prepare embedder: %w", err)
	}
	vectors, err := p.deps.Embedder.Encode(ctx, texts, true)
	if err != nil {
		return fmt.Errorf("embed nodes: %w", err)
	}
	if len(vectors) != len(texts) || len(vectors[0]) == 0 {
		return fmt.Errorf("embed nodes: got %d vectors for %d nodes", len(vectors), len(texts))
	}

	if err := p.deps.Index.Init(ctx, len(vectors[0])); err != nil {
		return fmt.Errorf("init vector index: %w", err)
	}
	if err := p.deps.Index.Clear(ctx); err != nil {
		return fmt.Errorf("clear vector index: %w", err)
	}
	for start := 0; start < len(all); start += upsertBatch {
		end := min(start+upsertBatch, len(all))
		ids := make([]int64, 0, end-start)
		for _, n := range all[start:end] {
			ids = append(ids, n.ID)
		}
		if err := p.deps.Index.Upsert(ctx, ids, vectors[start:end]); err != nil {
			return fmt.Errorf("upsert vectors: %w", err)
		}
	}

	if p.deps.Lexical != nil {
		docs := make([]lexical.Document, len(all))
		for i, n := range all {
			docs[i] = lexical.Document{Ref: n.Ref, Text: n.Text}
		}
		if err := p.deps.Lexical.Build(docs); err != nil {
			return fmt.Errorf("build lexical index: %w", err)
		}
	}

	p.mu.Lock()
	p.nodes = nodes
	p.mu.Unlock()
	p.logger.Info("index built", "nodes", nodes.Len(), "dimension", len(vectors[0]), "embedder", p.deps.Embedder.Name())
	return nil
}

func (p *Pipeline) nodeTable() *corpus.NodeTable {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nodes
}

// Search returns the top k target entities for query.
func (p *Pipeline) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	nodes := p.nodeTable()
	if nodes == nil {
		return nil, ErrIndexNotBuilt
	}
	if k <= 0 {
		k = defaultTopK
	}
	hits, err := p.rawHits(ctx, nodes, query, k*p.opts.CandidateMultiplier)
	if err != nil {
		return nil, err
	}
	return p.deps.Aggregator.Aggregate(hits, k), nil
}

func (p *Pipeline) rawHits(ctx context.Context, nodes *corpus.NodeTable, query string, n int) ([]domain.RawHit, error) {
	vecs, err := p.deps.Embedder.Encode(ctx, []string{query}, true)
	if err != nil {
		if !p.lexicalEnabled() {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		p.logger.Warn("query embedding failed, using lexical search", "error", err)
		return p.lexicalHits(ctx, query, n)
	}
	if len(vecs) != 1 || isZero(vecs[0]) {
		if p.lexicalEnabled() {
			p.logger.Debug("query vector is zero, using lexical search")
			return p.lexicalHits(ctx, query, n)
		}
		return nil, nil
	}

	scores, ids, err := p.deps.Index.Search(ctx, vecs[0], n)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	hits := make([]domain.RawHit, 0, len(ids))
	signal := false
	for i, id := range ids {
		if id == domain.NoResult {
			continue
		}
		ref, ok := nodes.Resolve(id)
		if !ok {
			p.logger.Debug("dropping vector id with no node", "id", id)
			continue
		}
		// A zero score means no overlap with the query at all.
		if scores[i] <= zeroScore {
			continue
		}
		signal = true
		hits = append(hits, domain.RawHit{Node: ref, Similarity: scores[i]})
	}
	if !signal && p.lexicalEnabled() {
		p.logger.Debug("vector hits carry no signal, using lexical search", "hits", len(hits))
		return p.lexicalHits(ctx, query, n)
	}
	return hits, nil
}

func (p *Pipeline) lexicalEnabled() bool {
	return p.deps.Lexical != nil && !p.opts.DisableLexicalFallback
}

func (p *Pipeline) lexicalHits(ctx context.Context, query string, n int) ([]domain.RawHit, error) {
	return p.deps.Lexical.Search(ctx, query, n)
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
