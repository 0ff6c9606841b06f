package langchain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImpl struct {
	vectors [][]float32
	err     error
}

func (f *fakeImpl) EmbedDocuments(_ context.Context, _ []string) ([][]float32, error) {
	return f.vectors, f.err
}

func (f *fakeImpl) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[0], nil
}

func TestEmbedder(t *testing.T) {
	t.Run("Should delegate to the wrapped implementation", func(t *testing.T) {
		e := Wrap("fake", &fakeImpl{vectors: [][]float32{{1, 2}}})

		v, err := e.EmbedQuery(context.Background(), "q")

		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2}, v)
		assert.Equal(t, "fake", e.Name())
	})

	t.Run("Should reject a mismatched batch", func(t *testing.T) {
		e := Wrap("fake", &fakeImpl{vectors: [][]float32{{1}}})

		_, err := e.EmbedDocuments(context.Background(), []string{"a", "b"})

		assert.Error(t, err)
	})

	t.Run("Should wrap provider errors", func(t *testing.T) {
		cause := errors.New("rate limited")
		e := Wrap("fake", &fakeImpl{err: cause})

		_, err := e.EmbedQuery(context.Background(), "q")

		assert.ErrorIs(t, err, cause)
	})

	t.Run("Should require a model", func(t *testing.T) {
		_, err := New(Config{})

		assert.Error(t, err)
	})
}
