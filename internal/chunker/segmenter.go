package chunker

import (
	"regexp"
	"strings"
)

// tokensPerWord approximates subword tokens per whitespace word.
const tokensPerWord = 1.3

// minSegmentChars drops fragments too short to carry meaning.
const minSegmentChars = 5

// EstimateTokens approximates the token count of text from its word count.
func EstimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * tokensPerWord)
}

// Segmenter splits commentary text into sentence-sized snippets bounded by
// an approximate token budget.
type Segmenter struct {
	maxTokens int
	splitter  *regexp.Regexp
}

func NewSegmenter(maxTokens int) *Segmenter {
	if maxTokens <= 0 {
		maxTokens = 200
	}
	return &Segmenter{
		maxTokens: maxTokens,
		// Latin terminators plus the Devanagari danda and double danda.
		splitter: regexp.MustCompile(`[.!?।॥]+`),
	}
}

// Split returns the snippets of text in order. Sentences over budget are cut
// into word windows that fit it. Fragments shorter than five characters are
// dropped.
func (s *Segmenter) Split(text string) []string {
	var out []string
	windowWords := max(int(float64(s.maxTokens)/tokensPerWord), 1)
	for _, sentence := range s.splitter.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if len([]rune(sentence)) < minSegmentChars {
			continue
		}
		if EstimateTokens(sentence) <= s.maxTokens {
			out = append(out, sentence)
			continue
		}
		words := strings.Fields(sentence)
		for i := 0; i < len(words); i += windowWords {
			end := min(i+windowWords, len(words))
			piece := strings.Join(words[i:end], " ")
			if len([]rune(piece)) >= minSegmentChars {
				out = append(out, piece)
			}
		}
	}
	return out
}
