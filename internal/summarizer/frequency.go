// Package summarizer condenses commentary text into a short extractive gist
// for display next to search results. It never calls the reasoning service.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"exegesis/internal/chunker"
	"exegesis/internal/domain"
)

// FrequencySummarizer ranks sentences by salient word frequency.
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
	segmenter    *chunker.Segmenter
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`[\p{L}\p{M}]+(?:['’][\p{L}\p{M}]+)*`),
		stopwords:    defaultStopwords(),
		segmenter:    chunker.NewSegmenter(200),
	}
}

// Summarize returns up to maxSentences of text, picked by score and joined
// in their original order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 2
	}
	sentences := s.segmenter.Split(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	if len(sentences) <= maxSentences {
		return joinSentences(sentences)
	}

	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, sent := range sentences {
		tokens[i] = s.tokens(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i := range sentences {
		score := 0.0
		for _, tok := range tokens[i] {
			score += freq[tok] / maxF
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(tokens[i])); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = pair{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return joinSentences(out)
}

// Digest maps each evidence item id to its gist.
func (s *FrequencySummarizer) Digest(items []domain.EvidenceItem, maxSentences int) map[string]string {
	out := make(map[string]string, len(items))
	for _, it := range items {
		out[it.ID] = s.Summarize(it.Text, maxSentences)
	}
	return out
}

func joinSentences(sentences []string) string {
	return strings.Join(sentences, ". ") + "."
}

func (s *FrequencySummarizer) tokens(text string) []string {
	lower := strings.ToLower(norm.NFKC.String(text))
	raw := s.tokenPattern.FindAllString(lower, -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := s.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "it", "this", "that", "these", "those", "from", "so", "such", "into", "about", "not", "no", "one", "he", "his", "him", "its", "their", "they", "who", "which", "what",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
