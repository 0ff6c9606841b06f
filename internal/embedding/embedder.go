// Package embedding provides the text embedders used for indexing and
// querying. The same embedder must serve both sides of an index.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kxddry/hr-rag/internal/domain"
)

// Cached fronts an embedder with an LRU keyed by the text digest.
type Cached struct {
	inner domain.Embedder
	cache *lru.Cache[string, []float32]
}

var _ domain.Embedder = (*Cached)(nil)

func NewCached(inner domain.Embedder, size int) (*Cached, error) {
	if size <= 0 {
		return nil, fmt.Errorf("embedding: cache size must be greater than zero")
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedding: init cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Name returns the wrapped embedder's name so indices stay compatible.
func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.lookup(text); ok {
		return v, nil
	}
	v, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(text, v)
	return cloneVector(v), nil
}

// EmbedDocuments embeds only the texts missing from the cache, once each.
func (c *Cached) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	missing := make(map[string][]int)
	var order []string
	for i, text := range texts {
		if v, ok := c.lookup(text); ok {
			results[i] = v
			continue
		}
		if _, seen := missing[text]; !seen {
			order = append(order, text)
		}
		missing[text] = append(missing[text], i)
	}
	if len(order) == 0 {
		return results, nil
	}
	embedded, err := c.inner.EmbedDocuments(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(order) {
		return nil, fmt.Errorf("embedding: received %d embeddings for %d texts", len(embedded), len(order))
	}
	for i, text := range order {
		for _, idx := range missing[text] {
			results[idx] = cloneVector(embedded[i])
		}
		c.store(text, embedded[i])
	}
	return results, nil
}

func (c *Cached) lookup(text string) ([]float32, bool) {
	v, ok := c.cache.Get(cacheKey(text))
	if !ok {
		return nil, false
	}
	return cloneVector(v), true
}

func (c *Cached) store(text string, v []float32) {
	if len(v) == 0 {
		return
	}
	c.cache.Add(cacheKey(text), cloneVector(v))
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(src []float32) []float32 {
	if len(src) == 0 {
		return nil
	}
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}
