package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqDist(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i] - b[i])
		s += d * d
	}
	return s
}

func TestEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("Should produce deterministic unit vectors", func(t *testing.T) {
		e := NewEmbedder(128)

		a, err := e.EmbedQuery(ctx, "Nhân viên được nghỉ phép năm")
		require.NoError(t, err)
		b, err := e.EmbedQuery(ctx, "Nhân viên được nghỉ phép năm")
		require.NoError(t, err)

		require.Len(t, a, 128)
		assert.Equal(t, a, b)
		var norm float64
		for _, v := range a {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	})

	t.Run("Should ignore diacritics and case", func(t *testing.T) {
		e := NewEmbedder(128)

		a, err := e.EmbedQuery(ctx, "Lương tháng")
		require.NoError(t, err)
		b, err := e.EmbedQuery(ctx, "luong thang")
		require.NoError(t, err)

		assert.InDelta(t, 0.0, sqDist(a, b), 1e-9)
	})

	t.Run("Should place related text closer than unrelated text", func(t *testing.T) {
		e := NewEmbedder(256)
		docs, err := e.EmbedDocuments(ctx, []string{
			"chính sách nghỉ phép năm của nhân viên",
			"quy định đóng bảo hiểm xã hội",
		})
		require.NoError(t, err)
		q, err := e.EmbedQuery(ctx, "nghỉ phép năm")
		require.NoError(t, err)

		assert.Less(t, sqDist(q, docs[0]), sqDist(q, docs[1]))
	})

	t.Run("Should return a zero vector for text without tokens", func(t *testing.T) {
		v, err := NewEmbedder(16).EmbedQuery(ctx, "!!! ...")

		require.NoError(t, err)
		assert.Equal(t, make([]float32, 16), v)
	})

	t.Run("Should include the dimension in its name", func(t *testing.T) {
		assert.Equal(t, "hashing-64", NewEmbedder(64).Name())
		assert.Equal(t, 512, NewEmbedder(0).Dimension())
	})

	t.Run("Should stop on a cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := NewEmbedder(16).EmbedDocuments(cctx, []string{"a"})

		assert.ErrorIs(t, err, context.Canceled)
	})
}
