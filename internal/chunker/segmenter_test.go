package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens("   "))
	assert.Equal(t, 1, EstimateTokens("dharma"))
	assert.Equal(t, 13, EstimateTokens("one two three four five six seven eight nine ten"))
}

func TestSplitSentences(t *testing.T) {
	s := NewSegmenter(200)
	got := s.Split("Act without attachment. Why? Because the fruit is not yours!! धर्मक्षेत्रे कुरुक्षेत्रे। ok.")
	assert.Equal(t, []string{
		"Act without attachment",
		"Because the fruit is not yours",
		"धर्मक्षेत्रे कुरुक्षेत्रे",
	}, got)
}

func TestSplitLongSentenceIntoWindows(t *testing.T) {
	s := NewSegmenter(13)
	words := make([]string, 25)
	for i := range words {
		words[i] = "word"
	}
	got := s.Split(strings.Join(words, " "))
	// 13 tokens / 1.3 = 10 words per window
	assert.Len(t, got, 3)
	assert.Len(t, strings.Fields(got[0]), 10)
	assert.Len(t, strings.Fields(got[2]), 5)
	for _, piece := range got {
		assert.LessOrEqual(t, EstimateTokens(piece), 13)
	}
}

func TestSplitEmpty(t *testing.T) {
	assert.Empty(t, NewSegmenter(0).Split(""))
}
