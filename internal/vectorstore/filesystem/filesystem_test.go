package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/vectorstore"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	chunks := []domain.Chunk{
		{ID: "c0", DocumentID: "doc", Index: 0, Text: "nghỉ phép năm", Section: "1. Nghỉ phép", Page: 2},
		{ID: "c1", DocumentID: "doc", Index: 1, Text: "bảo hiểm xã hội", Section: "2. Bảo hiểm", Page: 5},
	}
	vectors := [][]float32{{1, 0}, {0, 1}}

	t.Run("Should persist and reload an index", func(t *testing.T) {
		s, err := NewStore(t.TempDir(), "hashing-2")
		require.NoError(t, err)

		id, err := s.Create(ctx, "doc", chunks, vectors)
		require.NoError(t, err)
		idx, err := s.Load(ctx, "doc")
		require.NoError(t, err)

		assert.Equal(t, vectorstore.IndexID("doc"), id)
		assert.Equal(t, 2, idx.Len())
		hits, err := idx.Search(ctx, []float32{0, 1}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "2. Bảo hiểm", hits[0].Chunk.Section)
		assert.Equal(t, 5, hits[0].Chunk.Page)
	})

	t.Run("Should leave an existing snapshot untouched", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewStore(dir, "")
		require.NoError(t, err)
		_, err = s.Create(ctx, "doc", chunks, vectors)
		require.NoError(t, err)
		before, err := os.ReadFile(filepath.Join(dir, vectorstore.IndexID("doc")+".json"))
		require.NoError(t, err)

		_, err = s.Create(ctx, "doc", chunks[:1], vectors[:1])
		require.NoError(t, err)

		after, err := os.ReadFile(filepath.Join(dir, vectorstore.IndexID("doc")+".json"))
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Should report missing and corrupt snapshots", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewStore(dir, "")
		require.NoError(t, err)

		_, err = s.Load(ctx, "missing")
		assert.ErrorIs(t, err, vectorstore.ErrIndexNotFound)

		require.NoError(t, os.WriteFile(filepath.Join(dir, vectorstore.IndexID("bad")+".json"), []byte("{"), 0o600))
		_, err = s.Load(ctx, "bad")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, vectorstore.ErrIndexNotFound)
	})

	t.Run("Should delete snapshots", func(t *testing.T) {
		s, err := NewStore(t.TempDir(), "")
		require.NoError(t, err)
		_, err = s.Create(ctx, "doc", chunks, vectors)
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "doc"))

		ok, err := s.Exists(ctx, "doc")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, s.Delete(ctx, "doc"), vectorstore.ErrIndexNotFound)
	})
}
