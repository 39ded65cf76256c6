package corpus

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText applies NFKC normalization, trims surrounding whitespace and
// drops control characters other than newline and tab.
func NormalizeText(text string) string {
	normed := strings.TrimSpace(norm.NFKC.String(text))
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
}
