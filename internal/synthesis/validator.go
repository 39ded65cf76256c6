// Package synthesis asks the reasoning service for a grounded answer over a
// set of excerpts and validates whatever comes back.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"exegesis/internal/confidence"
	"exegesis/internal/domain"
)

const (
	// InsufficientSummary is the summary of every result not backed by a synthesis.
	InsufficientSummary = "INSUFFICIENT_GROUNDED_EVIDENCE"
	// DefaultNote fills a missing note.
	DefaultNote = "N/A"

	fallbackConfidence = 0.6
	fallbackCitations  = 3
	rawPreviewChars    = 100
)

// Options tunes a Validator. Zero fields take defaults.
type Options struct {
	Model             string
	MaxTokens         int
	Timeout           time.Duration
	PromptTokenBudget int
	ShrinkTo          int
}

// Validator is safe for concurrent use.
type Validator struct {
	reasoner domain.Reasoner
	audit    *AuditLog
	opts     Options
	logger   *slog.Logger
}

// NewValidator builds a validator. A nil reasoner means no credentials were
// configured, and every call short-circuits. A nil audit log disables auditing.
func NewValidator(reasoner domain.Reasoner, audit *AuditLog, opts Options, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 400
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.PromptTokenBudget <= 0 {
		opts.PromptTokenBudget = 2800
	}
	if opts.ShrinkTo <= 0 {
		opts.ShrinkTo = 6
	}
	return &Validator{reasoner: reasoner, audit: audit, opts: opts, logger: logger}
}

// Insufficient builds the sentinel result carrying note.
func Insufficient(note string) domain.SynthesisResult {
	return domain.SynthesisResult{
		Summary:         InsufficientSummary,
		Direction:       domain.DirectionInsufficientEvidence,
		CitedExcerptIDs: []string{},
		CitedSchools:    []string{},
		Confidence:      0,
		Note:            note,
		Source:          domain.SourceInsufficient,
	}
}

// Synthesize never fails. Service errors and unusable answers degrade to
// the sentinel or the templated fallback. totalSchools is the distinct
// school count of the evidence pool the excerpts were drawn from.
func (v *Validator) Synthesize(ctx context.Context, query string, excerpts []domain.Excerpt, totalSchools int) domain.SynthesisResult {
	if len(excerpts) == 0 {
		return Insufficient("No relevant excerpts were selected from the evidence.")
	}
	if v.reasoner == nil {
		return Insufficient("Reasoning service credentials are not configured.")
	}

	prompt, offered := buildPrompt(query, excerpts, v.opts.PromptTokenBudget, v.opts.ShrinkTo)
	if len(offered) < len(excerpts) {
		v.logger.Debug("prompt over budget, excerpts shrunk", "from", len(excerpts), "to", len(offered))
	}

	callCtx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	defer cancel()
	start := time.Now()
	raw, err := v.reasoner.Complete(callCtx, domain.ReasonRequest{
		System:    systemPrompt,
		User:      prompt,
		MaxTokens: v.opts.MaxTokens,
	})

	rec := AuditRecord{
		Query:        query,
		Model:        v.opts.Model,
		OfferedIDs:   excerptIDs(offered),
		TotalSchools: totalSchools,
		RawResponse:  raw,
	}

	var result domain.SynthesisResult
	if err != nil {
		v.logger.Warn("reasoning service call failed", "error", err, "elapsed", time.Since(start))
		result = Insufficient(v.errorNote(err))
		rec.Error = err.Error()
	} else {
		var external *float64
		result, external = v.interpret(query, raw, offered, totalSchools)
		rec.ModelConfidence = external
	}

	rec.Source = result.Source
	rec.CitedIDs = result.CitedExcerptIDs
	rec.FinalConfidence = result.Confidence
	rec.Result = result
	if err := v.audit.Append(rec); err != nil {
		v.logger.Warn("audit log write failed", "path", v.audit.Path(), "error", err)
	}
	return result
}

func (v *Validator) interpret(query, raw string, offered []domain.Excerpt, totalSchools int) (domain.SynthesisResult, *float64) {
	fields, source, ok := parseResponse(raw)
	if !ok {
		v.logger.Info("reasoning output was not valid JSON, using fallback", "raw_len", len(raw))
		return fallback(query, raw, offered), nil
	}

	result := domain.SynthesisResult{Source: source}

	dir, ok := domain.ParseDirection(stringField(fields, "direction"))
	if !ok {
		dir = domain.DirectionMixed
	}
	result.Direction = dir

	result.CitedExcerptIDs = filterCited(listField(fields, "cited_excerpt_ids", "supporting_ids"), offered)
	cited := citedExcerpts(result.CitedExcerptIDs, offered)
	result.CitedSchools = schoolsOf(cited)

	reported := confidenceField(fields, "confidence", "confidence_score")
	external := &reported

	result.Summary = stringField(fields, "summary")
	if result.Summary == "" {
		result.Summary = InsufficientSummary
	}
	result.Note = stringField(fields, "note")
	if result.Note == "" {
		result.Note = DefaultNote
	}

	result.Confidence = confidence.Estimate(confidence.Input{
		Cited:        cited,
		TotalSchools: totalSchools,
		Offered:      len(offered),
		External:     external,
	})
	return result, external
}

// fallback builds the deterministic result used when no object could be parsed.
func fallback(query, raw string, offered []domain.Excerpt) domain.SynthesisResult {
	head := offered[:min(fallbackCitations, len(offered))]
	ids := filterCited(anySlice(excerptIDs(head)), offered)
	return domain.SynthesisResult{
		Summary: fmt.Sprintf("Based on %d commentary excerpts, this verse addresses the question about %s.",
			len(offered), strings.ToLower(query)),
		Direction:       domain.DirectionMixed,
		CitedExcerptIDs: ids,
		CitedSchools:    schoolsOf(head),
		Confidence:      fallbackConfidence,
		Note:            fmt.Sprintf("Fallback response - model output was not valid JSON. Raw: %s...", truncateRunes(raw, rawPreviewChars)),
		Source:          domain.SourceFallback,
	}
}

func (v *Validator) errorNote(err error) string {
	var se *domain.ServiceError
	switch {
	case errors.As(err, &se):
		note := fmt.Sprintf("API error: %d", se.StatusCode)
		switch se.StatusCode {
		case http.StatusUnauthorized:
			note += " - Invalid API key"
		case http.StatusTooManyRequests:
			note += " - Rate limit exceeded"
		case http.StatusInternalServerError:
			note += " - Server error"
		}
		return note
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Reasoning service timed out after %s.", v.opts.Timeout)
	case errors.Is(err, domain.ErrServiceUnavailable):
		return "Reasoning service temporarily unavailable after repeated failures."
	case errors.Is(err, domain.ErrMissingCredentials):
		return "Reasoning service credentials are not configured."
	case errors.Is(err, domain.ErrEmptyResponse):
		return "Reasoning service returned an empty response."
	default:
		return fmt.Sprintf("Error during processing: %v", err)
	}
}

// filterCited keeps string ids present among offered, first occurrence only.
func filterCited(raw []any, offered []domain.Excerpt) []string {
	known := make(map[string]struct{}, len(offered))
	for _, e := range offered {
		known[e.ID] = struct{}{}
	}
	out := []string{}
	seen := make(map[string]struct{})
	for _, item := range raw {
		id, ok := item.(string)
		if !ok {
			continue
		}
		id = strings.TrimSpace(id)
		if _, ok := known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// citedExcerpts returns the offered excerpts whose id was cited.
func citedExcerpts(ids []string, offered []domain.Excerpt) []domain.Excerpt {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	var out []domain.Excerpt
	for _, e := range offered {
		if _, ok := set[e.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}

func schoolsOf(excerpts []domain.Excerpt) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, e := range excerpts {
		if _, ok := seen[e.School]; ok {
			continue
		}
		seen[e.School] = struct{}{}
		out = append(out, e.School)
	}
	return out
}

func excerptIDs(excerpts []domain.Excerpt) []string {
	out := make([]string, len(excerpts))
	for i, e := range excerpts {
		out[i] = e.ID
	}
	return out
}

func anySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

func listField(fields map[string]any, keys ...string) []any {
	for _, k := range keys {
		if l, ok := fields[k].([]any); ok {
			return l
		}
	}
	return nil
}

// confidenceField reads the first key holding a number, accepting numeric
// strings, clamped to [0,1]. A missing or non-numeric value counts as 0.
func confidenceField(fields map[string]any, keys ...string) float64 {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case float64:
			return confidence.Clamp(v)
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return confidence.Clamp(parsed)
			}
		}
	}
	return 0
}
