package tui

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"exegesis/internal/chunker"
	"exegesis/internal/domain"
)

// ExampleQueries are offered before the first search.
var ExampleQueries = []string{
	"What is dharma?",
	"How to achieve moksha?",
	"Nature of the self",
	"Karma yoga principles",
}

// Port is the TUI-facing subset of the pipeline.
type Port interface {
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
	AskResult(ctx context.Context, query string, result domain.SearchResult) domain.Answer
	Digest(result domain.SearchResult) map[string]string
}

type synthesisMsg struct {
	gen    int
	cursor int
	answer domain.Answer
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx       context.Context
	service   Port
	topK      int
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.SearchResult
	answers   map[int]domain.Answer
	pending   map[int]bool
	status    string
	cursor    int
	ready     bool
	lastQuery string
	// gen counts searches so late synthesis replies for old results are dropped.
	gen int
}

// New creates a new TUI model instance.
func New(ctx context.Context, service Port, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	if topK <= 0 {
		topK = 10
	}
	return Model{
		ctx:      ctx,
		service:  service,
		topK:     topK,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Loaded. Enter searches, up/down browse, tab synthesizes.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil

	case synthesisMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		delete(m.pending, msg.cursor)
		m.answers[msg.cursor] = msg.answer
		m.status = fmt.Sprintf("Synthesis ready for result %d (%s)", msg.cursor+1, msg.answer.Synthesis.Source)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if q := strings.TrimSpace(m.input.Value()); q != "" {
				m.search(q)
				return m, nil
			}
		case "tab":
			if len(m.results) > 0 && !m.pending[m.cursor] {
				if _, done := m.answers[m.cursor]; !done {
					m.pending[m.cursor] = true
					m.status = "Synthesizing..."
					m.viewport.SetContent(m.renderCurrentResult())
					return m, m.synthesize(m.cursor)
				}
			}
			return m, nil
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) search(q string) {
	res, err := m.service.Search(m.ctx, q, m.topK)
	m.gen++
	m.answers = make(map[int]domain.Answer)
	m.pending = make(map[int]bool)
	m.cursor = 0
	if err != nil {
		m.status = "Error: " + err.Error()
		m.results = nil
	} else {
		m.status = fmt.Sprintf("%d results for %q", len(res), q)
		m.results = res
		m.lastQuery = q
	}
	m.viewport.SetContent(m.renderCurrentResult())
}

func (m Model) synthesize(cursor int) tea.Cmd {
	ctx, svc, query, result, gen := m.ctx, m.service, m.lastQuery, m.results[cursor], m.gen
	return func() tea.Msg {
		return synthesisMsg{gen: gen, cursor: cursor, answer: svc.AskResult(ctx, query, result)}
	}
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Exegesis")
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		var b strings.Builder
		b.WriteString("No results yet. Try:\n")
		for _, q := range ExampleQueries {
			b.WriteString("  • " + q + "\n")
		}
		return b.String()
	}
	r := m.results[m.cursor]
	var b strings.Builder
	fmt.Fprintf(&b, "Result %d/%d  Verse %s  score=%.3f  support=%d\n\n",
		m.cursor+1, len(m.results), r.Target.ID, r.Score, r.SupportCount)
	b.WriteString(r.Target.Text + "\n")
	if en, ok := r.Target.Translations["english"]; ok {
		b.WriteString(highlightBestSentence(en, m.lastQuery) + "\n")
	}

	b.WriteString("\n" + sectionStyle.Render("Provenance") + "\n")
	for _, p := range r.Provenance {
		b.WriteString("  " + p + "\n")
	}
	if len(r.Concepts) > 0 {
		b.WriteString(sectionStyle.Render("Concepts") + " " + strings.Join(r.Concepts, ", ") + "\n")
	}

	if digest := m.service.Digest(r); len(digest) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Commentaries") + "\n")
		for _, ev := range r.Evidence {
			fmt.Fprintf(&b, "  [%s] %s\n    %s\n", ev.School, ev.Author(), digest[ev.ID])
		}
	}

	switch {
	case m.pending[m.cursor]:
		b.WriteString("\n" + sectionStyle.Render("Synthesis") + " pending...\n")
	default:
		if ans, ok := m.answers[m.cursor]; ok {
			b.WriteString("\n" + renderSynthesis(ans.Synthesis))
		}
	}
	return b.String()
}

func renderSynthesis(s domain.SynthesisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  direction=%s  confidence=%.2f\n", sectionStyle.Render("Synthesis"), s.Direction, s.Confidence)
	b.WriteString(s.Summary + "\n")
	if len(s.CitedSchools) > 0 {
		b.WriteString("Cited: " + strings.Join(s.CitedSchools, ", ") + "\n")
	}
	b.WriteString(noteStyle.Render(s.Note) + "\n")
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sectionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	noteStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	unicodeWordRe  = regexp.MustCompile(`[\p{L}\p{M}]+(?:['’][\p{L}\p{M}]+)*`)
	segmenter      = chunker.NewSegmenter(200)
)

// highlightBestSentence emphasizes the sentence sharing the most words with query.
func highlightBestSentence(text, query string) string {
	sentences := segmenter.Split(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return text
	}
	type scored struct{ idx, score int }
	scores := make([]scored, len(sentences))
	for i, s := range sentences {
		scores[i] = scored{i, tokenOverlapScore(qTokens, s)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if scores[0].score == 0 {
		return text
	}
	best := sentences[scores[0].idx]
	return strings.Replace(text, best, highlightStyle.Render(best), 1)
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
