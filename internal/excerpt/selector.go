// Package excerpt picks a bounded, school-diverse set of commentary snippets
// to ground a synthesis request.
package excerpt

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"exegesis/internal/chunker"
	"exegesis/internal/domain"
)

// Options bounds the selection. Zero fields take the defaults of DefaultOptions.
type Options struct {
	MaxExcerpts            int
	MaxPerSchool           int
	MaxSnippetTokens       int
	LowSimilarityThreshold float64
	LowSimilarityTake      int
	FallbackChars          int
}

func DefaultOptions() Options {
	return Options{
		MaxExcerpts:            16,
		MaxPerSchool:           6,
		MaxSnippetTokens:       200,
		LowSimilarityThreshold: 0.1,
		LowSimilarityTake:      8,
		FallbackChars:          500,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxExcerpts <= 0 {
		o.MaxExcerpts = d.MaxExcerpts
	}
	if o.MaxPerSchool <= 0 {
		o.MaxPerSchool = d.MaxPerSchool
	}
	if o.MaxSnippetTokens <= 0 {
		o.MaxSnippetTokens = d.MaxSnippetTokens
	}
	if o.LowSimilarityThreshold <= 0 {
		o.LowSimilarityThreshold = d.LowSimilarityThreshold
	}
	if o.LowSimilarityTake <= 0 {
		o.LowSimilarityTake = d.LowSimilarityTake
	}
	if o.FallbackChars <= 0 {
		o.FallbackChars = d.FallbackChars
	}
	return o
}

// Selector is safe for concurrent use; every call builds its own candidate list.
type Selector struct {
	embedder  domain.Embedder
	segmenter *chunker.Segmenter
	opts      Options
	logger    *slog.Logger
}

// NewSelector builds a selector. A nil embedder disables ranking.
func NewSelector(embedder domain.Embedder, opts Options, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	return &Selector{
		embedder:  embedder,
		segmenter: chunker.NewSegmenter(opts.MaxSnippetTokens),
		opts:      opts,
		logger:    logger,
	}
}

// Options returns the effective options.
func (s *Selector) Options() Options { return s.opts }

// Select returns at most MaxExcerpts excerpts from evidence for query.
func (s *Selector) Select(ctx context.Context, query string, evidence []domain.EvidenceItem) []domain.Excerpt {
	candidates := s.candidates(evidence)
	if len(candidates) == 0 {
		return nil
	}
	return s.rank(ctx, query, candidates)
}

// candidates segments evidence, keeping at most MaxPerSchool snippets per
// school. When no snippet survives it falls back to one truncated excerpt per
// evidence item.
func (s *Selector) candidates(evidence []domain.EvidenceItem) []domain.Excerpt {
	var out []domain.Excerpt
	perSchool := make(map[string]int)
	for i := range evidence {
		ev := &evidence[i]
		if !ev.Usable() || perSchool[ev.School] >= s.opts.MaxPerSchool {
			continue
		}
		for _, snippet := range s.segmenter.Split(ev.Text) {
			out = append(out, domain.Excerpt{ID: ev.ID, School: ev.School, Text: snippet, Source: ev})
			perSchool[ev.School]++
			if perSchool[ev.School] >= s.opts.MaxPerSchool {
				break
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	for i := range evidence {
		ev := &evidence[i]
		text := strings.TrimSpace(ev.Text)
		if !ev.Usable() || len([]rune(text)) <= 5 {
			continue
		}
		out = append(out, domain.Excerpt{ID: ev.ID, School: ev.School, Text: truncateRunes(text, s.opts.FallbackChars), Source: ev})
	}
	return out
}

func (s *Selector) rank(ctx context.Context, query string, candidates []domain.Excerpt) []domain.Excerpt {
	unranked := func(n int) []domain.Excerpt {
		n = min(n, s.opts.MaxExcerpts, len(candidates))
		return candidates[:n]
	}
	if s.embedder == nil {
		return unranked(s.opts.MaxExcerpts)
	}

	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, query)
	for _, c := range candidates {
		texts = append(texts, c.Text)
	}
	vecs, err := s.embedder.Encode(ctx, texts, true)
	if err != nil || len(vecs) != len(texts) {
		s.logger.Warn("excerpt ranking unavailable, using candidate order", "error", err, "candidates", len(candidates))
		return unranked(s.opts.MaxExcerpts)
	}

	q := vecs[0]
	for i := range candidates {
		candidates[i].Similarity = dot(q, vecs[i+1])
	}
	ranked := make([]domain.Excerpt, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Similarity > ranked[j].Similarity })

	if ranked[0].Similarity < s.opts.LowSimilarityThreshold {
		s.logger.Debug("excerpt similarity below threshold, ranking ignored",
			"top", ranked[0].Similarity, "threshold", s.opts.LowSimilarityThreshold)
		return unranked(s.opts.LowSimilarityTake)
	}
	return ranked[:min(s.opts.MaxExcerpts, len(ranked))]
}

func dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
