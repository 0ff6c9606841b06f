package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/service"
)

type scriptedStreamer struct {
	events []service.Event
	reqs   []service.Request
}

func (s *scriptedStreamer) Stream(_ context.Context, req service.Request) <-chan service.Event {
	s.reqs = append(s.reqs, req)
	out := make(chan service.Event, len(s.events))
	for _, e := range s.events {
		out <- e
	}
	close(out)
	return out
}

// drain feeds the command results back into the model until the stream ends.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil && i < 100; i++ {
		next, c := m.Update(cmd())
		m = next.(Model)
		cmd = c
		if !m.Busy() {
			break
		}
	}
	require.False(t, m.Busy())
	return m
}

func ask(m Model, q string) (Model, tea.Cmd) {
	m.input.SetValue(q)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model)
}

func TestModel(t *testing.T) {
	t.Run("Should stream an answer and show its references", func(t *testing.T) {
		svc := &scriptedStreamer{events: []service.Event{
			service.DeltaEvent{Text: "Bạn có 12 ngày phép. "},
			service.DeltaEvent{Text: "Liên hệ HR."},
			service.FinalEvent{
				Response:   "Bạn có 12 ngày phép. Liên hệ HR.",
				References: []domain.Reference{{FileName: "So_tay.pdf", Section: "3. Nghỉ phép", FinalScore: 0.8}},
				Method:     domain.MethodFallback,
			},
		}}
		m := sized(New(context.Background(), svc, "u1", "c1", "1 document"))

		m, cmd := ask(m, "Tôi có bao nhiêu ngày phép?")
		require.True(t, m.Busy())
		m = drain(t, m, cmd)

		require.Len(t, svc.reqs, 1)
		assert.Equal(t, "u1", svc.reqs[0].UserID)
		assert.Equal(t, "c1", svc.reqs[0].ConversationID)
		assert.False(t, svc.reqs[0].Cancelled())
		view := m.renderTranscript()
		assert.Contains(t, view, "Tôi có bao nhiêu ngày phép?")
		assert.Contains(t, view, "Liên hệ HR.")
		assert.Contains(t, view, "So_tay.pdf")
		assert.Contains(t, m.View(), "HR Assistant")
		assert.Empty(t, m.input.Value())
	})

	t.Run("Should signal cancellation with Esc", func(t *testing.T) {
		svc := &scriptedStreamer{events: []service.Event{service.CancelledEvent{}}}
		m := sized(New(context.Background(), svc, "u1", "", ""))

		m, cmd := ask(m, "Quy trình thử việc?")
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		m = drain(t, next.(Model), cmd)

		assert.True(t, svc.reqs[0].Cancelled())
		assert.Contains(t, m.renderTranscript(), "(stopped)")
	})

	t.Run("Should ignore empty input", func(t *testing.T) {
		svc := &scriptedStreamer{}
		m := sized(New(context.Background(), svc, "", "", ""))

		m, cmd := ask(m, "   ")

		assert.Nil(t, cmd)
		assert.False(t, m.Busy())
		assert.Empty(t, svc.reqs)
	})
}

func TestHighlightBestSentence(t *testing.T) {
	t.Run("Should keep the text when nothing overlaps", func(t *testing.T) {
		text := "Xin chào. Hẹn gặp lại."

		assert.Equal(t, text, highlightBestSentence(text, "lương"))
	})

	t.Run("Should keep every sentence of the answer", func(t *testing.T) {
		text := "Lương trả ngày 5. Phép năm là 12 ngày."

		out := highlightBestSentence(text, "phép năm")

		assert.True(t, strings.HasPrefix(out, "Lương trả ngày 5."))
		assert.Contains(t, out, "Phép năm là 12 ngày.")
	})
}
