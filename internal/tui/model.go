// Package tui is the terminal chat front end of the answering service.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/service"
)

// Streamer is the TUI-facing subset of the answering service.
type Streamer interface {
	Stream(ctx context.Context, req service.Request) <-chan service.Event
}

// eventMsg wraps one event of the running stream.
type eventMsg struct {
	event service.Event
	ok    bool
}

type turn struct {
	question   string
	answer     strings.Builder
	references []domain.Reference
	method     domain.Method
	cancelled  bool
}

// Model is the Bubble Tea model of the chat.
type Model struct {
	ctx      context.Context
	service  Streamer
	userID   string
	convID   string
	input    textinput.Model
	viewport viewport.Model
	turns    []*turn
	events   <-chan service.Event
	stop     *atomic.Bool
	summary  string
	status   string
	ready    bool
}

// New creates a chat model. summary is shown under the header.
func New(ctx context.Context, svc Streamer, userID, conversationID, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask an HR question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		service:  svc,
		userID:   userID,
		convID:   conversationID,
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   "Ready. Esc stops an answer, Ctrl+C quits.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Busy reports whether an answer is being streamed.
func (m Model) Busy() bool { return m.events != nil }

// Update handles key, window and stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil
	case eventMsg:
		return m.handleEvent(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			if m.stop != nil {
				m.stop.Store(true)
			}
			return m, tea.Quit
		}
		switch msg.Type {
		case tea.KeyEsc:
			if m.stop != nil {
				m.stop.Store(true)
				m.status = "Stopping..."
			}
			return m, nil
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.Busy() {
				return m, nil
			}
			return m.ask(q)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) (tea.Model, tea.Cmd) {
	stop := &atomic.Bool{}
	m.stop = stop
	m.turns = append(m.turns, &turn{question: q})
	m.events = m.service.Stream(m.ctx, service.Request{
		Question:       q,
		UserID:         m.userID,
		ConversationID: m.convID,
		Cancelled:      stop.Load,
	})
	m.input.SetValue("")
	m.status = "Answering..."
	m.refresh()
	return m, waitForEvent(m.events)
}

func (m Model) handleEvent(msg eventMsg) (tea.Model, tea.Cmd) {
	if len(m.turns) == 0 {
		return m, nil
	}
	cur := m.turns[len(m.turns)-1]
	if !msg.ok {
		m.events, m.stop = nil, nil
		m.refresh()
		return m, nil
	}
	switch e := msg.event.(type) {
	case service.DeltaEvent:
		cur.answer.WriteString(e.Text)
	case service.FinalEvent:
		cur.answer.Reset()
		cur.answer.WriteString(e.Response)
		cur.references = e.References
		cur.method = e.Method
		m.status = fmt.Sprintf("Answered via %s", e.Method)
	case service.CancelledEvent:
		cur.cancelled = true
		m.status = "Answer stopped."
	}
	m.refresh()
	return m, waitForEvent(m.events)
}

func waitForEvent(events <-chan service.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		return eventMsg{event: e, ok: ok}
	}
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("HR Assistant")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("You: " + t.question))
		b.WriteString("\n")
		b.WriteString(highlightBestSentence(t.answer.String(), t.question))
		if t.cancelled {
			b.WriteString("\n")
			b.WriteString(mutedStyle.Render("(stopped)"))
		}
		for _, r := range t.references {
			b.WriteString("\n")
			b.WriteString(mutedStyle.Render(fmt.Sprintf("Source: %s, %s (%.2f)", r.FileName, r.Section, r.FinalScore)))
		}
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	mutedStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	unicodeWordRe      = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe         = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasises the answer sentence sharing the most
// words with the question.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return text
	}
	qTokens := toTokenSet(query)
	bestIdx, bestScore := -1, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	if bestIdx < 0 {
		return text
	}
	best := sentences[bestIdx]
	at := strings.Index(text, best)
	return text[:at] + highlightStyle.Render(best) + text[at+len(best):]
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
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
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
