package service

import (
	"context"

	"exegesis/internal/corpus"
	"exegesis/internal/domain"
	"exegesis/internal/synthesis"
)

// Ask searches and synthesizes an answer grounded in the top result's
// evidence. Reasoning failures never surface as errors; they are reported
// in the synthesis note.
func (p *Pipeline) Ask(ctx context.Context, query string, k int) (domain.Answer, error) {
	results, err := p.Search(ctx, query, k)
	if err != nil {
		return domain.Answer{}, err
	}
	if len(results) == 0 {
		return domain.Answer{Query: query, Synthesis: synthesis.Insufficient("No matching verses were found.")}, nil
	}
	return p.synthesize(ctx, query, results, results[:1]), nil
}

// AskResult synthesizes an answer from one already retrieved result.
func (p *Pipeline) AskResult(ctx context.Context, query string, result domain.SearchResult) domain.Answer {
	results := []domain.SearchResult{result}
	return p.synthesize(ctx, query, results, results)
}

// AskPooled pools the evidence of the top pool results into one bundle.
func (p *Pipeline) AskPooled(ctx context.Context, query string, k, pool int) (domain.Answer, error) {
	results, err := p.Search(ctx, query, k)
	if err != nil {
		return domain.Answer{}, err
	}
	if len(results) == 0 {
		return domain.Answer{Query: query, Synthesis: synthesis.Insufficient("No matching verses were found.")}, nil
	}
	if pool <= 0 {
		pool = len(results)
	}
	return p.synthesize(ctx, query, results, results[:min(pool, len(results))]), nil
}

func (p *Pipeline) synthesize(ctx context.Context, query string, results, grounding []domain.SearchResult) domain.Answer {
	var evidence []domain.EvidenceItem
	for _, r := range grounding {
		evidence = append(evidence, r.Evidence...)
	}
	excerpts := p.deps.Selector.Select(ctx, query, evidence)
	p.logger.Debug("excerpts selected", "evidence", len(evidence), "excerpts", len(excerpts))

	answer := domain.Answer{
		Query:    query,
		Results:  results,
		Excerpts: excerpts,
	}
	answer.Synthesis = p.deps.Validator.Synthesize(ctx, query, excerpts, distinctSchools(evidence))
	return answer
}

// Digest returns a short extractive gist per evidence item of result.
func (p *Pipeline) Digest(result domain.SearchResult) map[string]string {
	if p.deps.Digest == nil {
		return nil
	}
	return p.deps.Digest.Digest(result.Evidence, digestLength)
}

// Subgraph returns the node and edge view of results.
func (p *Pipeline) Subgraph(results []domain.SearchResult) corpus.Subgraph {
	return corpus.BuildSubgraph(results)
}

func distinctSchools(items []domain.EvidenceItem) int {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.School] = struct{}{}
	}
	return len(seen)
}
