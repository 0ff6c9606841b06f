package classifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxddry/hr-rag/internal/config"
	"github.com/kxddry/hr-rag/internal/domain"
)

// scriptedGenerator answers each prompt kind with a fixed reply.
type scriptedGenerator struct {
	intent   string
	analysis string
	topic    string
	chat     string
	err      error
	calls    atomic.Int32
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	if g.err != nil {
		return "", g.err
	}
	switch {
	case strings.Contains(prompt, "intent là một trong"), strings.Contains(prompt, "intent is one of"):
		return g.intent, nil
	case strings.Contains(prompt, "1. topic:"):
		return g.topic, nil
	case strings.Contains(prompt, "processed_question:"):
		return g.analysis, nil
	}
	return g.chat, nil
}

func (g *scriptedGenerator) Stream(ctx context.Context, prompt string, onDelta func(string) error) error {
	out, err := g.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	return onDelta(out)
}

// keyedEmbedder maps texts containing a key to its vector and everything
// else to a shared orthogonal vector.
type keyedEmbedder struct {
	keys  map[string][]float32
	calls atomic.Int32
}

func (e *keyedEmbedder) Name() string { return "keyed" }

func (e *keyedEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	return e.vector(text), nil
}

func (e *keyedEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *keyedEmbedder) vector(text string) []float32 {
	for k, v := range e.keys {
		if strings.Contains(text, k) {
			return v
		}
	}
	return []float32{0, 0, 0, 1}
}

type fakeWorkflow struct {
	mu      sync.Mutex
	active  map[string]bool
	reply   string
	err     error
	handled []string
	resets  []string
}

func (w *fakeWorkflow) InConversation(_ context.Context, userID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active[userID]
}

func (w *fakeWorkflow) Handle(_ context.Context, question, _, _ string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handled = append(w.handled, question)
	return w.reply, w.err
}

func (w *fakeWorkflow) Reset(_ context.Context, userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resets = append(w.resets, userID)
}

func newCascade(t *testing.T, deps Deps) *Cascade {
	t.Helper()
	c, err := New(config.Default().Classifier, deps)
	require.NoError(t, err)
	return c
}

func TestCascade(t *testing.T) {
	ctx := context.Background()

	t.Run("Should evaluate strategies cheapest first", func(t *testing.T) {
		c := newCascade(t, Deps{})
		assert.Equal(t, []string{"guardrail", "fast_cache", "intent", "email", "topic", "chitchat", "rag"}, c.Strategies())
	})

	t.Run("Should answer near copies of curated chitchat without calling any model", func(t *testing.T) {
		gen := &scriptedGenerator{}
		emb := &keyedEmbedder{}
		c := newCascade(t, Deps{Generator: gen, Embedder: emb})

		res, err := c.Classify(ctx, Input{Question: "Xin chào!"})

		require.NoError(t, err)
		assert.Equal(t, domain.PathCached, res.Path)
		assert.Equal(t, domain.MethodFastCache, res.Method)
		assert.Equal(t, domain.QuestionChitchat, res.QuestionType)
		assert.Equal(t, c.Data().Chitchat[0].Response, res.CachedResponse)
		assert.InDelta(t, 0.9, res.Confidence, 1e-9)
		assert.Zero(t, gen.calls.Load())
		assert.Zero(t, emb.calls.Load())
	})

	t.Run("Should answer keyword gated HR questions from the categories", func(t *testing.T) {
		gen := &scriptedGenerator{}
		c := newCascade(t, Deps{Generator: gen})

		res, err := c.Classify(ctx, Input{Question: "Khi nào công ty trả lương?"})

		require.NoError(t, err)
		assert.Equal(t, domain.PathCached, res.Path)
		assert.Equal(t, domain.QuestionHR, res.QuestionType)
		assert.Contains(t, res.CachedResponse, "**Lương thưởng**")
		assert.Contains(t, res.CachedResponse, "https://vinova.sg/")
		assert.Zero(t, gen.calls.Load())
	})

	t.Run("Should refuse offensive questions before anything else", func(t *testing.T) {
		gen := &scriptedGenerator{}
		c := newCascade(t, Deps{Generator: gen})

		res, err := c.Classify(ctx, Input{Question: "Mày là đồ ngu", Lang: "vi"})

		require.NoError(t, err)
		assert.Equal(t, domain.PathGuardrail, res.Path)
		assert.Equal(t, domain.MethodGuardrail, res.Method)
		assert.Equal(t, Refusal("vi"), res.CachedResponse)
		assert.True(t, res.Terminal())
		assert.Zero(t, gen.calls.Load())
	})

	t.Run("Should retry the HR answers without the keyword gate on an HR intent", func(t *testing.T) {
		gen := &scriptedGenerator{intent: `{"intent": "hr_inquiry"}`}
		c := newCascade(t, Deps{Generator: gen})

		res, err := c.Classify(ctx, Input{Question: "Thời gian thử việc bao lâu"})

		require.NoError(t, err)
		assert.Equal(t, domain.PathCached, res.Path)
		assert.Equal(t, "hr_inquiry", res.Intent)
		assert.Contains(t, res.CachedResponse, "**Thử việc**")
		assert.Equal(t, int32(1), gen.calls.Load())
	})

	t.Run("Should hand email requests to the workflow", func(t *testing.T) {
		gen := &scriptedGenerator{intent: `{"intent": "ot"}`}
		wf := &fakeWorkflow{reply: "Bản nháp email xin OT"}
		c := newCascade(t, Deps{Generator: gen, Email: wf})

		res, err := c.Classify(ctx, Input{Question: "Tôi muốn xin OT tối nay", UserID: "u1"})

		require.NoError(t, err)
		assert.Equal(t, domain.PathEmail, res.Path)
		assert.Equal(t, "ot", res.Intent)
		assert.Equal(t, "Bản nháp email xin OT", res.CachedResponse)
		assert.Equal(t, []string{"Tôi muốn xin OT tối nay"}, wf.handled)
	})

	t.Run("Should keep routing to the workflow while a draft is in progress", func(t *testing.T) {
		wf := &fakeWorkflow{reply: "Bạn muốn nghỉ từ ngày nào?", active: map[string]bool{"u1": true}}
		c := newCascade(t, Deps{Email: wf})

		res, err := c.Classify(ctx, Input{Question: "Thứ hai tuần sau", UserID: "u1"})

		require.NoError(t, err)
		assert.Equal(t, domain.PathEmail, res.Path)
		assert.Len(t, wf.handled, 1)
	})

	t.Run("Should reset the workflow and continue when it fails", func(t *testing.T) {
		wf := &fakeWorkflow{err: errors.New("smtp down")}
		c := newCascade(t, Deps{Email: wf})

		res, err := c.Classify(ctx, Input{Question: "Tôi muốn xin OT tối nay", UserID: "u1"})

		require.NoError(t, err)
		assert.Equal(t, domain.PathRAG, res.Path)
		assert.Equal(t, []string{"u1"}, wf.resets)
	})

	t.Run("Should answer from a confident embedding match", func(t *testing.T) {
		emb := &keyedEmbedder{keys: map[string][]float32{"Thời gian thử việc bao lâu": {1, 0, 0, 0}}}
		c := newCascade(t, Deps{Embedder: emb})

		res, err := c.Classify(ctx, Input{Question: "Thời gian thử việc bao lâu"})

		require.NoError(t, err)
		assert.Equal(t, domain.PathCached, res.Path)
		assert.Equal(t, domain.MethodEmbeddingCache, res.Method)
		assert.Equal(t, "predefined", res.Intent)
		assert.Equal(t, "Thử việc", res.Topic)
		assert.Equal(t, "Thời gian thử việc tối đa hai tháng tùy vị trí.", res.CachedResponse)
		assert.InDelta(t, 1.0, res.Confidence, 1e-6)
	})

	t.Run("Should prefer a confident LLM reading over the embedding match", func(t *testing.T) {
		gen := &scriptedGenerator{
			intent:   `{"intent": "unknown"}`,
			analysis: `{"processed_question": "thời gian thử việc", "question_type": "hr_question", "keywords": ["thử việc"], "intent": "policy", "confidence": 0.9}`,
			topic:    `{"topic": "công việc"}`,
		}
		emb := &keyedEmbedder{keys: map[string][]float32{"Thời gian thử việc bao lâu": {1, 0, 0, 0}}}
		wf := &fakeWorkflow{}
		c := newCascade(t, Deps{Generator: gen, Embedder: emb, Email: wf})

		res, err := c.Classify(ctx, Input{Question: "Thời gian thử việc bao lâu"})

		require.NoError(t, err)
		assert.Equal(t, domain.PathRAG, res.Path)
		assert.Equal(t, domain.MethodLLM, res.Method)
		assert.Equal(t, "công việc", res.Topic)
		assert.Equal(t, "thời gian thử việc", res.ProcessedQuestion)
		assert.Empty(t, res.CachedResponse)
		assert.Empty(t, wf.handled)
	})

	t.Run("Should send follow-ups to the general route", func(t *testing.T) {
		gen := &scriptedGenerator{
			intent:   `{"intent": "unknown"}`,
			analysis: `{"question_type": "chitchat", "confidence": 0.9}`,
			topic:    `{"topic": "khác"}`,
		}
		c := newCascade(t, Deps{Generator: gen})

		res, err := c.Classify(ctx, Input{Question: "Cho tôi thêm thông tin chi tiết hơn"})

		require.NoError(t, err)
		assert.Equal(t, domain.PathRAG, res.Path)
		assert.Equal(t, domain.MethodFollowUp, res.Method)
		assert.Equal(t, domain.QuestionGeneral, res.QuestionType)
	})

	t.Run("Should reply to small talk with the model", func(t *testing.T) {
		gen := &scriptedGenerator{
			intent:   `{"intent": "chitchat"}`,
			analysis: `{"question_type": "chitchat", "confidence": 0.8}`,
			topic:    `{"topic": "chitchat"}`,
			chat:     "Đúng vậy, trời đẹp thật!",
		}
		c := newCascade(t, Deps{Generator: gen})

		res, err := c.Classify(ctx, Input{Question: "Hôm nay trời đẹp quá"})

		require.NoError(t, err)
		assert.Equal(t, domain.PathChitchat, res.Path)
		assert.Equal(t, "Đúng vậy, trời đẹp thật!", res.CachedResponse)
		assert.Equal(t, int32(4), gen.calls.Load())
	})

	t.Run("Should report the error tier when every signal fails", func(t *testing.T) {
		gen := &scriptedGenerator{err: errors.New("rate limited")}
		c := newCascade(t, Deps{Generator: gen})

		res, err := c.Classify(ctx, Input{Question: "Thời tiết Hà Nội ra sao"})

		require.NoError(t, err)
		assert.Equal(t, domain.PathRAG, res.Path)
		assert.Equal(t, domain.MethodError, res.Method)
		assert.Zero(t, res.Confidence)
	})
}

func TestResolve(t *testing.T) {
	p := DefaultPrecedence()
	match := EmbeddingMatch{QuestionType: domain.QuestionHR, Category: "Nghỉ phép", Response: "12 ngày", Confidence: 0.65}
	failed := errors.New("down")

	tests := []struct {
		name   string
		s      Signals
		path   domain.Path
		method domain.Method
		conf   float64
	}{
		{"Should take the LLM reading at high confidence", Signals{LLM: Analysis{Confidence: 0.7}, Match: match, Matched: true}, domain.PathRAG, domain.MethodLLM, 0.7},
		{"Should take the embedding match below high LLM confidence", Signals{LLM: Analysis{Confidence: 0.69}, Match: match, Matched: true}, domain.PathCached, domain.MethodEmbeddingCache, 0.65},
		{"Should ignore embedding matches without an answer", Signals{LLM: Analysis{Confidence: 0.55}, Match: EmbeddingMatch{Confidence: 0.9}, Matched: true}, domain.PathRAG, domain.MethodLLM, 0.55},
		{"Should take a moderate LLM reading", Signals{LLM: Analysis{Confidence: 0.5}}, domain.PathRAG, domain.MethodLLM, 0.5},
		{"Should mark keyword table topics", Signals{LLM: Analysis{Confidence: 0.8, TopicFromCache: true}}, domain.PathRAG, domain.MethodKeywordCache, 0.8},
		{"Should fall back below every gate", Signals{LLM: Analysis{Confidence: 0.3}}, domain.PathRAG, domain.MethodFallback, 0.4},
		{"Should fall back when only the LLM failed", Signals{LLMErr: failed, LLM: Analysis{Confidence: 0.9}}, domain.PathRAG, domain.MethodFallback, 0.4},
		{"Should report the error tier when both signals failed", Signals{LLMErr: failed, MatchErr: failed}, domain.PathRAG, domain.MethodError, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.s, p)
			assert.Equal(t, tt.path, res.Path)
			assert.Equal(t, tt.method, res.Method)
			assert.InDelta(t, tt.conf, res.Confidence, 1e-9)
		})
	}

	t.Run("Should clear cached answers for follow-ups", func(t *testing.T) {
		res := FollowUp("Còn gì nữa không?", Resolve(Signals{LLMErr: failed, Match: match, Matched: true}, p))
		assert.Equal(t, domain.MethodFollowUp, res.Method)
		assert.Equal(t, domain.PathRAG, res.Path)
		assert.Empty(t, res.CachedResponse)
	})
}
