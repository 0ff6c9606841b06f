// Package langchain adapts langchaingo embedders to the domain interface.
package langchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/kxddry/hr-rag/internal/domain"
)

// Config selects the provider model behind the embedder.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int
}

// Embedder wraps a langchaingo embeddings.Embedder.
type Embedder struct {
	name string
	impl embeddings.Embedder
}

var _ domain.Embedder = (*Embedder)(nil)

// New builds an OpenAI-backed langchaingo embedder.
func New(cfg Config) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, errors.New("langchain: embedding model is required")
	}
	opts := []openai.Option{openai.WithEmbeddingModel(cfg.Model)}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("langchain: init openai client: %w", err)
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 32
	}
	impl, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batch),
		embeddings.WithStripNewLines(true),
	)
	if err != nil {
		return nil, fmt.Errorf("langchain: construct embedder: %w", err)
	}
	return Wrap("langchain-"+cfg.Model, impl), nil
}

// Wrap adapts an existing langchaingo embedder.
func Wrap(name string, impl embeddings.Embedder) *Embedder {
	return &Embedder{name: name, impl: impl}
}

func (e *Embedder) Name() string { return e.name }

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedder %q: %w", e.name, err)
	}
	return v, nil
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	v, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedder %q: %w", e.name, err)
	}
	if len(v) != len(texts) {
		return nil, fmt.Errorf("embedder %q: received %d embeddings for %d texts", e.name, len(v), len(texts))
	}
	return v, nil
}
