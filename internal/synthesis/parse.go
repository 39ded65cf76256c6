package synthesis

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"exegesis/internal/domain"
)

var thinkTags = regexp.MustCompile(`(?s)<think>.*?</think>`)

// parseResponse decodes raw into a JSON object. It reports SourceStructured
// when raw is a clean object, SourceRecovered when the object had to be cut
// out of surrounding text or repaired, and ok=false when neither worked.
func parseResponse(raw string) (fields map[string]any, source domain.SynthesisSource, ok bool) {
	if obj, ok := decodeObject(raw); ok {
		return obj, domain.SourceStructured, true
	}

	cleaned := thinkTags.ReplaceAllString(raw, "")
	for _, block := range candidateBlocks(cleaned) {
		if obj, ok := decodeObject(block); ok {
			return obj, domain.SourceRecovered, true
		}
		repaired, err := jsonrepair.JSONRepair(block)
		if err != nil {
			continue
		}
		if obj, ok := decodeObject(repaired); ok {
			return obj, domain.SourceRecovered, true
		}
	}
	return nil, "", false
}

func decodeObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// candidateBlocks returns the first balanced brace block of s, then the span
// from the first "{" to the last "}". An unterminated block runs to the end
// of s so repair can close it.
func candidateBlocks(s string) []string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil
	}
	var blocks []string
	end := balancedEnd(s, start)
	if end < 0 {
		blocks = append(blocks, s[start:])
	} else {
		blocks = append(blocks, s[start:end+1])
	}
	if last := strings.LastIndexByte(s, '}'); last > start && last != end {
		blocks = append(blocks, s[start:last+1])
	}
	return blocks
}

// balancedEnd returns the index of the brace closing the one at start,
// skipping braces inside JSON strings, or -1.
func balancedEnd(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
