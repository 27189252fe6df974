package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docrag/internal/domain"
	"docrag/internal/service"
	"docrag/internal/summarizer"
	"docrag/internal/tokenizer"
)

// AskPort is the TUI-facing subset of the RAG service.
type AskPort interface {
	AskAll(ctx context.Context, question string, opts *domain.QueryOptions) ([]service.DocumentAnswer, error)
	Documents() []service.Document
}

type answersMsg struct {
	question string
	answers  []service.DocumentAnswer
	err      error
}

// Model is the Bubble Tea model for the query console.
type Model struct {
	service   AskPort
	timeout   time.Duration
	input     textinput.Model
	viewport  viewport.Model
	answers   []service.DocumentAnswer
	status    string
	cursor    int
	ready     bool
	busy      bool
	lastQuery string
}

// New creates a console over the documents already ingested into svc.
func New(svc AskPort, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	status := fmt.Sprintf("%d document(s) indexed. Type to ask.", len(svc.Documents()))
	return Model{service: svc, timeout: timeout, input: ti, viewport: vp, status: status}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		answers, err := m.service.AskAll(ctx, q, nil)
		return answersMsg{question: q, answers: answers, err: err}
	}
}

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, summary, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case answersMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.answers = nil
		} else {
			m.status = fmt.Sprintf("Answers for %q", msg.question)
			m.answers = msg.answers
			m.cursor = 0
			m.lastQuery = msg.question
		}
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = "Searching..."
				return m, m.ask(q)
			}
		case "down", "tab":
			if len(m.answers) > 0 {
				m.cursor = (m.cursor + 1) % len(m.answers)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "up", "shift+tab":
			if len(m.answers) > 0 {
				m.cursor = (m.cursor - 1 + len(m.answers)) % len(m.answers)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docrag")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.currentSummary())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) currentSummary() string {
	if len(m.answers) > 0 {
		return m.answers[m.cursor].Document.Result.Summary
	}
	docs := m.service.Documents()
	if len(docs) == 1 {
		return docs[0].Result.Summary
	}
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	return strings.Join(names, ", ")
}

func (m Model) renderCurrent() string {
	if len(m.answers) == 0 {
		return "No answers yet."
	}
	a := m.answers[m.cursor]
	md := a.Response.Metadata
	title := fmt.Sprintf("%s  %d/%d  confidence=%.3f  method=%s  %dms",
		a.Document.Name, m.cursor+1, len(m.answers), a.Response.Confidence, md.Method, md.ProcessingTimeMs)
	if md.CacheHit {
		title += "  (cached)"
	}
	return title + "\n\n" + highlightBestSentence(a.Response.Answer, m.lastQuery)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// highlightBestSentence emphasizes the sentence sharing the most tokens with
// query. Ties go to the earliest sentence.
func highlightBestSentence(text, query string) string {
	sentences := summarizer.Sentences(text)
	if len(sentences) == 0 {
		return text
	}
	q := tokenizer.Set(tokenizer.Tokenize(query))
	if len(q) == 0 {
		return strings.Join(sentences, " ")
	}
	best, bestScore := 0, -1
	for i, s := range sentences {
		if score := overlap(q, s); score > bestScore {
			best, bestScore = i, score
		}
	}
	sentences[best] = highlightStyle.Render(sentences[best])
	return strings.Join(sentences, " ")
}

func overlap(q map[string]struct{}, sentence string) int {
	n := 0
	for t := range tokenizer.Set(tokenizer.Tokenize(sentence)) {
		if _, ok := q[t]; ok {
			n++
		}
	}
	return n
}
