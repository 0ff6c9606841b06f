package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kxddry/hr-rag/internal/chunker"
	"github.com/kxddry/hr-rag/internal/citation"
	"github.com/kxddry/hr-rag/internal/classifier"
	"github.com/kxddry/hr-rag/internal/config"
	"github.com/kxddry/hr-rag/internal/conversation"
	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/embedding"
	"github.com/kxddry/hr-rag/internal/embedding/hashing"
	"github.com/kxddry/hr-rag/internal/embedding/langchain"
	"github.com/kxddry/hr-rag/internal/embedding/openai"
	"github.com/kxddry/hr-rag/internal/llm"
	"github.com/kxddry/hr-rag/internal/logger"
	"github.com/kxddry/hr-rag/internal/metrics"
	"github.com/kxddry/hr-rag/internal/registry"
	"github.com/kxddry/hr-rag/internal/service"
	"github.com/kxddry/hr-rag/internal/summarizer"
	"github.com/kxddry/hr-rag/internal/vectorstore"
	"github.com/kxddry/hr-rag/internal/vectorstore/filesystem"
	"github.com/kxddry/hr-rag/internal/vectorstore/memory"
	"github.com/kxddry/hr-rag/internal/vectorstore/pgvector"
	"github.com/kxddry/hr-rag/internal/vectorstore/qdrant"
)

// app holds the assembled service and whatever must be released with it.
type app struct {
	svc      *service.RAGService
	registry *registry.Cached
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// build assembles components from the config.
func build(ctx context.Context, cfg *config.AppConfig, rec *metrics.Recorder) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	log := logger.FromContext(ctx).With("component", "cli")

	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	if cfg.Embedder.CacheSize > 0 {
		if emb, err = embedding.NewCached(emb, cfg.Embedder.CacheSize); err != nil {
			return nil, err
		}
	}

	store, err := a.newStore(ctx, cfg.VectorStore, emb.Name(), cfg.Embedder.Dimensions)
	if err != nil {
		return nil, err
	}
	cached, err := vectorstore.NewCachedStore(store, cfg.VectorStore.CacheCost)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, cached.Close)

	reg, err := a.newRegistry(cfg.Registry)
	if err != nil {
		return nil, err
	}
	a.registry = registry.NewCached(reg, time.Duration(cfg.Registry.CacheTTLSecs)*time.Second)

	var gen domain.Generator
	if g, err := llm.New(cfg.LLM); err != nil {
		log.Warn("generation disabled", "error", err)
	} else {
		gen = g
	}

	cls, err := classifier.New(cfg.Classifier, classifier.Deps{Embedder: emb, Generator: gen})
	if err != nil {
		return nil, err
	}

	var convClient redis.UniversalClient
	if cfg.Conversation.RedisAddr != "" {
		c := redis.NewClient(&redis.Options{Addr: cfg.Conversation.RedisAddr})
		a.closers = append(a.closers, func() { _ = c.Close() })
		convClient = c
	}
	mem, err := conversation.NewMemory(cfg.Conversation, convClient)
	if err != nil {
		return nil, err
	}

	a.svc, err = service.NewRAGService(*cfg, service.Deps{
		Chunker: chunker.NewHeadingChunker(chunker.Options{
			ChunkSize:     cfg.Chunker.ChunkSize,
			Overlap:       cfg.Chunker.Overlap,
			MinSpanChars:  cfg.Chunker.MinSpanChars,
			MinChunkChars: cfg.Chunker.MinChunkChars,
		}),
		Embedder:   emb,
		Store:      cached,
		Registry:   a.registry,
		Classifier: cls,
		Generator:  gen,
		Attributor: citation.NewAttributor(cfg.Citation, citation.RegistryCatalog{Registry: a.registry}),
		Summarizer: summarizer.New(cfg.Summarizer),
		Memory:     mem,
		Metrics:    rec,
	})
	if err != nil {
		return nil, err
	}
	log.Debug("service assembled", "embedder", emb.Name(), "store", cfg.VectorStore.Type, "registry", cfg.Registry.Type)
	return a, nil
}

func newEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Dimensions), nil
	case "openai":
		return openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize:  cfg.OpenAI.BatchSize,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
	case "langchain":
		return langchain.New(langchain.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKey:    os.Getenv(cfg.OpenAI.APIKeyEnv),
			Model:     cfg.OpenAI.Model,
			BatchSize: cfg.OpenAI.BatchSize,
		})
	}
	return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
}

func (a *app) newStore(ctx context.Context, cfg config.VectorStoreConfig, embedder string, dimension int) (domain.IndexStore, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewStore(), nil
	case "filesystem", "":
		return filesystem.NewStore(cfg.Dir, embedder)
	case "qdrant":
		return qdrant.NewStore(qdrant.Config{
			URL:              cfg.Qdrant.URL,
			APIKey:           cfg.Qdrant.APIKey,
			CollectionPrefix: cfg.Qdrant.CollectionPrefix,
			Timeout:          time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	case "pgvector":
		dim := cfg.Postgres.Dimensions
		if dim <= 0 {
			dim = dimension
		}
		store, pool, err := pgvector.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.Table, dim)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		return store, nil
	}
	return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
}

func (a *app) newRegistry(cfg config.RegistryConfig) (domain.Registry, error) {
	switch cfg.Type {
	case "file", "":
		return registry.NewFileRegistry(cfg.Path)
	case "sqlite":
		r, err := registry.NewSQLiteRegistry(cfg.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = r.Close() })
		return r, nil
	case "redis":
		c := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, func() { _ = c.Close() })
		return registry.NewRedisRegistry(c, cfg.RedisKey), nil
	}
	return nil, fmt.Errorf("unknown registry: %s", cfg.Type)
}
