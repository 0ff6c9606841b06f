package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/vectorstore"
)

// fakeQdrant keeps collections in memory and answers the REST calls the
// store makes.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string][]map[string]any
	creates     int
	apiKeys     []string
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{collections: make(map[string][]map[string]any)}
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	name := parts[1]
	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		points, ok := f.collections[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"points_count": len(points)}})
	case len(parts) == 2 && r.Method == http.MethodPut:
		f.creates++
		f.collections[name] = nil
		_, _ = w.Write([]byte(`{"result":true}`))
	case len(parts) == 2 && r.Method == http.MethodDelete:
		if _, ok := f.collections[name]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.collections, name)
		_, _ = w.Write([]byte(`{"result":true}`))
	case len(parts) == 3 && r.Method == http.MethodPut:
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.collections[name] = append(f.collections[name], body.Points...)
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case len(parts) == 4 && r.Method == http.MethodPost:
		var result []map[string]any
		for i, p := range f.collections[name] {
			// Euclid distances 1, 2, 3... in insertion order.
			result = append(result, map[string]any{"score": float64(i + 1), "payload": p["payload"]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	chunks := []domain.Chunk{
		{ID: "c0", Index: 0, Text: "nghỉ phép", Section: "1. Nghỉ phép"},
		{ID: "c1", Index: 1, Text: "bảo hiểm", Section: "2. Bảo hiểm"},
	}
	vectors := [][]float32{{1, 0}, {0, 1}}

	t.Run("Should create a collection once and search with squared distances", func(t *testing.T) {
		fake := newFakeQdrant()
		srv := httptest.NewServer(fake)
		defer srv.Close()
		s := NewStore(Config{URL: srv.URL, APIKey: "secret"})

		id1, err := s.Create(ctx, "Doc 1", chunks, vectors)
		require.NoError(t, err)
		id2, err := s.Create(ctx, "Doc 1", chunks, vectors)
		require.NoError(t, err)

		assert.Equal(t, id1, id2)
		assert.Equal(t, "hrrag_doc_1", id1)
		assert.Equal(t, 1, fake.creates)

		idx, err := s.Load(ctx, "Doc 1")
		require.NoError(t, err)
		assert.Equal(t, 2, idx.Len())
		hits, err := idx.Search(ctx, []float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "1. Nghỉ phép", hits[0].Chunk.Section)
		assert.InDelta(t, 1.0, hits[0].Distance, 1e-9)
		assert.InDelta(t, 4.0, hits[1].Distance, 1e-9)
		assert.Equal(t, "Doc 1", hits[1].Source)
		assert.Contains(t, fake.apiKeys, "secret")
	})

	t.Run("Should map missing collections to not found", func(t *testing.T) {
		srv := httptest.NewServer(newFakeQdrant())
		defer srv.Close()
		s := NewStore(Config{URL: srv.URL})

		_, err := s.Load(ctx, "missing")
		assert.ErrorIs(t, err, vectorstore.ErrIndexNotFound)
		ok, err := s.Exists(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, s.Delete(ctx, "missing"), vectorstore.ErrIndexNotFound)
	})

	t.Run("Should derive stable point ids", func(t *testing.T) {
		assert.Equal(t, pointID("doc", chunks[0]), pointID("doc", chunks[0]))
		assert.NotEqual(t, pointID("doc", chunks[0]), pointID("doc", chunks[1]))
		assert.Equal(t, pointID("doc", domain.Chunk{Index: 3}), pointID("doc", domain.Chunk{Index: 3}))
	})
}
