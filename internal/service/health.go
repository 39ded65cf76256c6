package service

import (
	"context"

	"exegesis/internal/corpus"
)

// Health summarizes the loaded corpus and the configured collaborators.
type Health struct {
	Corpus             corpus.Stats `json:"corpus"`
	IndexedNodes       int          `json:"indexed_nodes"`
	VectorCount        int          `json:"vector_count"`
	VectorStore        string       `json:"vector_store"`
	VectorStoreError   string       `json:"vector_store_error,omitempty"`
	Embedder           string       `json:"embedder"`
	Dimension          int          `json:"dimension"`
	LexicalDocuments   int          `json:"lexical_documents"`
	ReasonerConfigured bool         `json:"reasoner_configured"`
	Model              string       `json:"model,omitempty"`
	BreakerState       string       `json:"breaker_state,omitempty"`
}

// Health never fails; an unreachable vector store is reported in the result.
func (p *Pipeline) Health(ctx context.Context) Health {
	h := Health{
		Corpus:             p.deps.Store.Stats(),
		VectorStore:        p.opts.VectorStore,
		Embedder:           p.deps.Embedder.Name(),
		Dimension:          p.deps.Embedder.Dimension(),
		ReasonerConfigured: p.deps.ReasonerReady,
		Model:              p.opts.Model,
	}
	if nodes := p.nodeTable(); nodes != nil {
		h.IndexedNodes = nodes.Len()
	}
	if p.deps.Breaker != nil {
		h.BreakerState = p.deps.Breaker.State()
	}
	if p.deps.Lexical != nil {
		h.LexicalDocuments = p.deps.Lexical.Len()
	}
	n, err := p.deps.Index.Count(ctx)
	if err != nil {
		h.VectorStoreError = err.Error()
	}
	h.VectorCount = n
	return h
}
