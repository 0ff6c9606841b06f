// Package llm adapts langchaingo chat models to the domain generator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/kxddry/hr-rag/internal/config"
	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/logger"
)

// DefaultPrompt replaces an empty prompt.
const DefaultPrompt = "Hãy trả lời ngắn gọn."

var (
	ErrNoModels   = errors.New("llm: no models configured")
	ErrEmptyReply = errors.New("llm: empty reply")
)

// Model is a named chat model tried as one link of the fallback chain.
type Model struct {
	Name string
	LLM  llms.Model
}

// Options are the sampling options sent with every call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Generator calls its models in order until one answers.
type Generator struct {
	models []Model
	opts   Options
}

var _ domain.Generator = (*Generator)(nil)

// New builds the OpenAI primary and fallback models from cfg.
func New(cfg config.LLMConfig) (*Generator, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("llm: missing API key in env %s", cfg.APIKeyEnv)
	}
	var models []Model
	for _, name := range []string{cfg.PrimaryModel, cfg.FallbackModel} {
		if name == "" || containsModel(models, name) {
			continue
		}
		opts := []openai.Option{openai.WithModel(name), openai.WithToken(key)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("llm: init %s: %w", name, err)
		}
		models = append(models, Model{Name: name, LLM: client})
	}
	return NewWithModels(Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}, models...)
}

// NewWithModels wraps already constructed models.
func NewWithModels(opts Options, models ...Model) (*Generator, error) {
	if len(models) == 0 {
		return nil, ErrNoModels
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	return &Generator{models: models, opts: opts}, nil
}

func containsModel(models []Model, name string) bool {
	for _, m := range models {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Models lists the chain in call order.
func (g *Generator) Models() []string {
	out := make([]string, len(g.models))
	for i, m := range g.models {
		out[i] = m.Name
	}
	return out
}

func (g *Generator) messages(prompt string) []llms.MessageContent {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	return []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, prompt)}
}

func (g *Generator) callOptions(extra ...llms.CallOption) []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithTemperature(g.opts.Temperature),
		llms.WithMaxTokens(g.opts.MaxTokens),
	}
	return append(opts, extra...)
}

// Generate returns the trimmed reply of the first model that answers.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	log := logger.FromContext(ctx).With("component", "llm")
	msgs := g.messages(prompt)
	var errs []error
	for _, m := range g.models {
		resp, err := m.LLM.GenerateContent(ctx, msgs, g.callOptions()...)
		if err == nil {
			err = ErrEmptyReply
			if resp != nil && len(resp.Choices) > 0 {
				if text := strings.TrimSpace(resp.Choices[0].Content); text != "" {
					return text, nil
				}
			}
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn("model failed, trying next", "model", m.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", m.Name, err))
	}
	return "", fmt.Errorf("llm: generate: %w", errors.Join(errs...))
}

// Stream forwards the reply of the first model that answers. Deltas are
// buffered up to a natural border before reaching onDelta. A model is only
// replaced by the next one while nothing has been forwarded yet.
func (g *Generator) Stream(ctx context.Context, prompt string, onDelta func(delta string) error) error {
	log := logger.FromContext(ctx).With("component", "llm")
	msgs := g.messages(prompt)
	var errs []error
	for _, m := range g.models {
		buf := newBorderBuffer(onDelta)
		_, err := m.LLM.GenerateContent(ctx, msgs, g.callOptions(
			llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
				return buf.write(string(chunk))
			}),
		)...)
		if err == nil {
			err = buf.flush()
			if err == nil && !buf.forwarded {
				err = ErrEmptyReply
			}
		}
		if buf.aborted != nil {
			return buf.aborted
		}
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if buf.forwarded {
			return fmt.Errorf("llm: stream %s: %w", m.Name, err)
		}
		log.Warn("model failed, trying next", "model", m.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", m.Name, err))
	}
	return fmt.Errorf("llm: stream: %w", errors.Join(errs...))
}

var border = regexp.MustCompile(`(?m)(?:\n\n|^#{1,6}\s|^\d+\.\s|^-\s|[.!?]\s)$`)

var placeholders = map[string]struct{}{
	"{}":               {},
	`{"content": ""}`:  {},
	`{"response": ""}`: {},
	"null":             {},
	"undefined":        {},
}

type borderBuffer struct {
	b         strings.Builder
	emit      func(string) error
	forwarded bool
	// aborted holds the error returned by emit; it is passed through to the
	// caller instead of triggering the fallback model.
	aborted error
}

func newBorderBuffer(emit func(string) error) *borderBuffer {
	return &borderBuffer{emit: emit}
}

func (b *borderBuffer) write(delta string) error {
	if IsPlaceholder(delta) {
		return nil
	}
	b.b.WriteString(delta)
	if border.MatchString(b.b.String()) {
		return b.flush()
	}
	return nil
}

func (b *borderBuffer) flush() error {
	if b.b.Len() == 0 {
		return nil
	}
	text := b.b.String()
	b.b.Reset()
	b.forwarded = true
	if err := b.emit(text); err != nil {
		b.aborted = err
		return err
	}
	return nil
}

// IsPlaceholder reports whether a streamed delta carries no text. Whitespace
// deltas are kept since they separate words.
func IsPlaceholder(delta string) bool {
	if delta == "" {
		return true
	}
	_, ok := placeholders[strings.TrimSpace(delta)]
	return ok
}
