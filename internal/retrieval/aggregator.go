// Package retrieval turns raw vector-index hits over mixed node kinds into
// ranked target entities with provenance.
package retrieval

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"exegesis/internal/domain"
)

// Weights controls how each node kind contributes to a target's score.
type Weights struct {
	Target       float64
	Evidence     float64
	Concept      float64
	ConceptBoost float64
	SupportStep  float64
	SupportCap   float64
}

// DefaultWeights returns the stock tuning.
func DefaultWeights() Weights {
	return Weights{
		Target:       1.0,
		Evidence:     0.9,
		Concept:      0.8,
		ConceptBoost: 0.1,
		SupportStep:  0.05,
		SupportCap:   0.2,
	}
}

// Aggregator scores target entities from raw hits. It holds no per-query
// state and may be shared between goroutines.
type Aggregator struct {
	store   domain.KnowledgeStore
	weights Weights
	logger  *slog.Logger
}

func NewAggregator(store domain.KnowledgeStore, weights Weights, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{store: store, weights: weights, logger: logger}
}

// accumulator collects the contributions to one target within a single pass.
type accumulator struct {
	target     domain.TargetEntity
	scores     []float64
	provenance map[string]struct{}
	concepts   map[string]struct{}
	support    int
}

type pass struct {
	a    *Aggregator
	accs map[string]*accumulator
}

func (p *pass) add(targetID string, score float64, path string) *accumulator {
	acc, ok := p.accs[targetID]
	if !ok {
		target, found := p.a.store.Target(targetID)
		if !found {
			p.a.logger.Debug("dropping hit for unknown target", "target", targetID)
			return nil
		}
		acc = &accumulator{
			target:     target,
			provenance: make(map[string]struct{}),
			concepts:   make(map[string]struct{}),
		}
		p.accs[targetID] = acc
	}
	acc.scores = append(acc.scores, score)
	acc.provenance[path] = struct{}{}
	acc.support++
	return acc
}

// Aggregate resolves hits and returns at most limit results ordered by score
// descending, then target id. A limit of zero or less returns every result.
// Hits that cannot be resolved are skipped.
func (a *Aggregator) Aggregate(hits []domain.RawHit, limit int) []domain.SearchResult {
	p := &pass{a: a, accs: make(map[string]*accumulator)}

	for _, h := range hits {
		sim := h.Similarity
		if math.IsNaN(sim) || math.IsInf(sim, 0) {
			a.logger.Debug("dropping non-finite hit", "node", h.Node.String())
			continue
		}
		sim = max(sim, 0)

		switch h.Node.Kind {
		case domain.KindTarget:
			p.add(h.Node.Key, sim*a.weights.Target, fmt.Sprintf("Query → TargetEntity(%s)", h.Node.Key))

		case domain.KindEvidence:
			ev, ok := a.store.Evidence(h.Node.Key)
			if !ok {
				a.logger.Debug("dropping hit for unknown evidence", "evidence", h.Node.Key)
				continue
			}
			p.add(ev.TargetID, sim*a.weights.Evidence,
				fmt.Sprintf("Query → Evidence(%s) → TargetEntity(%s)", ev.School, ev.TargetID))

		case domain.KindConcept:
			c, ok := a.store.Concept(h.Node.Key)
			if !ok {
				a.logger.Debug("dropping hit for unknown concept", "concept", h.Node.Key)
				continue
			}
			for _, targetID := range c.MentionedIn {
				acc := p.add(targetID, sim*a.weights.Concept,
					fmt.Sprintf("Query → Concept(%s) → TargetEntity(%s)", c.Term, targetID))
				if acc != nil {
					acc.concepts[c.Term] = struct{}{}
				}
			}

		default:
			a.logger.Debug("dropping hit of unknown kind", "node", h.Node.String())
		}
	}

	results := make([]domain.SearchResult, 0, len(p.accs))
	for _, acc := range p.accs {
		results = append(results, domain.SearchResult{
			Target:       acc.target,
			Score:        a.score(acc),
			Provenance:   sortedSet(acc.provenance),
			Concepts:     sortedSet(acc.concepts),
			Evidence:     a.store.EvidenceFor(acc.target.ID),
			SupportCount: acc.support,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Target.ID < results[j].Target.ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (a *Aggregator) score(acc *accumulator) float64 {
	mean := 0.0
	if len(acc.scores) > 0 {
		sum := 0.0
		for _, s := range acc.scores {
			sum += s
		}
		mean = sum / float64(len(acc.scores))
	}
	conceptBoost := a.weights.ConceptBoost * float64(len(acc.concepts))
	supportBoost := math.Min(a.weights.SupportStep*float64(acc.support), a.weights.SupportCap)
	return mean + conceptBoost + supportBoost
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
