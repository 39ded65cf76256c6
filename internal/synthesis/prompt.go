package synthesis

import (
	"fmt"
	"strings"

	"exegesis/internal/chunker"
	"exegesis/internal/domain"
)

const systemPrompt = "You are a scholar of Hindu exegesis. Use only provided excerpts. " +
	"Do not add facts or invent attributions. You must respond with ONLY valid JSON - " +
	"no explanations, no markdown, no extra text. Just pure JSON."

const exampleBlock = `Example:
User question: "What is dharma?"
EXCERPTS:
C1 | Sri Vaisnava Sampradaya | "Dharma means righteous duty according to one's station in life..."
C2 | Advaita Vedanta | "Dharma is the eternal law that upholds cosmic order..."

Expected JSON:
{
  "summary": "Dharma represents righteous duty and eternal law that maintains cosmic order according to one's life circumstances.",
  "direction": "practical_action",
  "cited_excerpt_ids": ["C1", "C2"],
  "cited_schools": ["Sri Vaisnava Sampradaya", "Advaita Vedanta"],
  "confidence": 0.8,
  "note": "Strong consensus across schools on dharma as duty and cosmic law."
}`

const instructionBlock = `Instruction: You must respond with ONLY valid JSON. No other text. Produce JSON with these exact keys: ` +
	`summary (2-3 sentence synthesis to answer the user question), ` +
	`direction (practical_action|renunciation|devotional|jnana|mixed|insufficient_evidence), ` +
	`cited_excerpt_ids (array of excerpt IDs used), cited_schools (array of schools), ` +
	`confidence (0.0-1.0), note (short justification). Example format:
{"summary": "Your synthesis here", "direction": "mixed", "cited_excerpt_ids": ["C1"], "cited_schools": ["School Name"], "confidence": 0.8, "note": "Justification"}`

const (
	snippetChars       = 200
	shrunkSnippetChars = 150
)

// buildPrompt renders the user message for excerpts. When the estimate
// exceeds budget, only the first shrinkTo excerpts are kept with shorter
// snippets. It returns the excerpts actually rendered.
func buildPrompt(query string, excerpts []domain.Excerpt, budget, shrinkTo int) (string, []domain.Excerpt) {
	prompt := renderPrompt(query, excerpts, snippetChars)
	if budget > 0 && chunker.EstimateTokens(prompt) > budget && shrinkTo > 0 {
		excerpts = excerpts[:min(shrinkTo, len(excerpts))]
		prompt = renderPrompt(query, excerpts, shrunkSnippetChars)
	}
	return prompt, excerpts
}

func renderPrompt(query string, excerpts []domain.Excerpt, chars int) string {
	var b strings.Builder
	b.WriteString(exampleBlock)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "User question: %q\nEXCERPTS:\n", query)
	for _, e := range excerpts {
		fmt.Fprintf(&b, "%s | %s | \"%s...\"\n", e.ID, e.School, truncateRunes(e.Text, chars))
	}
	b.WriteString("\n")
	b.WriteString(instructionBlock)
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
