// Package vectorstore holds the per-document embedding index stores. Every
// store reports squared L2 distances so hits from different backends rank
// the same way.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/kxddry/hr-rag/internal/domain"
)

var (
	// ErrIndexNotFound is returned by Load and Delete for unknown documents.
	ErrIndexNotFound     = errors.New("vectorstore: index not found")
	ErrLengthMismatch    = errors.New("vectorstore: chunks and vectors length mismatch")
	ErrDimensionMismatch = errors.New("vectorstore: vector dimension mismatch")
	ErrEmptyIndex        = errors.New("vectorstore: no chunks to index")
)

// IndexID derives the stable index id of a document.
func IndexID(documentID string) string {
	var b strings.Builder
	b.WriteString("hrrag_")
	for _, r := range strings.ToLower(documentID) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Validate checks that chunks and vectors line up and share one dimension.
// It returns that dimension.
func Validate(chunks []domain.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) == 0 {
		return 0, ErrEmptyIndex
	}
	if len(chunks) != len(vectors) {
		return 0, ErrLengthMismatch
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, ErrDimensionMismatch
	}
	for _, v := range vectors {
		if len(v) != dim {
			return 0, ErrDimensionMismatch
		}
	}
	return dim, nil
}

// SquaredL2 returns the squared euclidean distance over the shared prefix.
func SquaredL2(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// CachedStore keeps loaded indices in memory. Indices never change once
// built, so entries only leave the cache on eviction or Delete.
type CachedStore struct {
	inner domain.IndexStore
	cache *ristretto.Cache[string, domain.Index]
}

var _ domain.IndexStore = (*CachedStore)(nil)

// NewCachedStore caches up to maxIndices loaded indices.
func NewCachedStore(inner domain.IndexStore, maxIndices int64) (*CachedStore, error) {
	if maxIndices <= 0 {
		maxIndices = 64
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, domain.Index]{
		NumCounters:        maxIndices * 10,
		MaxCost:            maxIndices,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: create index cache: %w", err)
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

func (s *CachedStore) Create(ctx context.Context, documentID string, chunks []domain.Chunk, vectors [][]float32) (string, error) {
	return s.inner.Create(ctx, documentID, chunks, vectors)
}

func (s *CachedStore) Load(ctx context.Context, documentID string) (domain.Index, error) {
	if idx, ok := s.cache.Get(documentID); ok {
		return idx, nil
	}
	idx, err := s.inner.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(documentID, idx, 1)
	return idx, nil
}

func (s *CachedStore) Exists(ctx context.Context, documentID string) (bool, error) {
	if _, ok := s.cache.Get(documentID); ok {
		return true, nil
	}
	return s.inner.Exists(ctx, documentID)
}

func (s *CachedStore) Delete(ctx context.Context, documentID string) error {
	s.cache.Del(documentID)
	return s.inner.Delete(ctx, documentID)
}

// Wait blocks until pending cache writes are applied.
func (s *CachedStore) Wait() { s.cache.Wait() }

// Close releases the cache.
func (s *CachedStore) Close() { s.cache.Close() }
