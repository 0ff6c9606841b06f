package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/vectorstore"
	"github.com/kxddry/hr-rag/internal/vectorstore/memory"
)

type countingStore struct {
	*memory.Store
	loads int
}

func (c *countingStore) Load(ctx context.Context, documentID string) (domain.Index, error) {
	c.loads++
	return c.Store.Load(ctx, documentID)
}

func TestIndexID(t *testing.T) {
	t.Run("Should sanitize document ids", func(t *testing.T) {
		assert.Equal(t, "hrrag_abc-123", vectorstore.IndexID("ABC-123"))
		assert.Equal(t, "hrrag_s__tay_v1", vectorstore.IndexID("Sổ tay.v1"))
	})
}

func TestValidate(t *testing.T) {
	chunks := []domain.Chunk{{ID: "a"}, {ID: "b"}}

	t.Run("Should return the shared dimension", func(t *testing.T) {
		dim, err := vectorstore.Validate(chunks, [][]float32{{1, 2}, {3, 4}})

		require.NoError(t, err)
		assert.Equal(t, 2, dim)
	})

	t.Run("Should reject ragged vectors", func(t *testing.T) {
		_, err := vectorstore.Validate(chunks, [][]float32{{1, 2}, {3}})

		assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
	})

	t.Run("Should reject an empty document", func(t *testing.T) {
		_, err := vectorstore.Validate(nil, nil)

		assert.ErrorIs(t, err, vectorstore.ErrEmptyIndex)
	})
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should load each index from the backend once", func(t *testing.T) {
		inner := &countingStore{Store: memory.NewStore()}
		_, err := inner.Create(ctx, "doc", []domain.Chunk{{ID: "a"}}, [][]float32{{1}})
		require.NoError(t, err)
		s, err := vectorstore.NewCachedStore(inner, 4)
		require.NoError(t, err)
		defer s.Close()

		_, err = s.Load(ctx, "doc")
		require.NoError(t, err)
		s.Wait()
		_, err = s.Load(ctx, "doc")
		require.NoError(t, err)

		assert.Equal(t, 1, inner.loads)
	})

	t.Run("Should drop cached entries on delete", func(t *testing.T) {
		inner := &countingStore{Store: memory.NewStore()}
		_, err := inner.Create(ctx, "doc", []domain.Chunk{{ID: "a"}}, [][]float32{{1}})
		require.NoError(t, err)
		s, err := vectorstore.NewCachedStore(inner, 4)
		require.NoError(t, err)
		defer s.Close()
		_, err = s.Load(ctx, "doc")
		require.NoError(t, err)
		s.Wait()

		require.NoError(t, s.Delete(ctx, "doc"))

		_, err = s.Load(ctx, "doc")
		assert.ErrorIs(t, err, vectorstore.ErrIndexNotFound)
	})
}
