package memory

import (
	"context"
	"sync"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/vectorstore"
)

// Index is an immutable brute-force index over one document's chunks.
type Index struct {
	documentID string
	dimension  int
	vectors    [][]float32
	chunks     []domain.Chunk
}

var _ domain.Index = (*Index)(nil)

// NewIndex copies chunks and vectors into a new index.
func NewIndex(documentID string, chunks []domain.Chunk, vectors [][]float32) (*Index, error) {
	dim, err := vectorstore.Validate(chunks, vectors)
	if err != nil {
		return nil, err
	}
	idx := &Index{
		documentID: documentID,
		dimension:  dim,
		vectors:    make([][]float32, len(vectors)),
		chunks:     append([]domain.Chunk(nil), chunks...),
	}
	for i, v := range vectors {
		idx.vectors[i] = append([]float32(nil), v...)
	}
	return idx, nil
}

func (x *Index) DocumentID() string { return x.documentID }

func (x *Index) Len() int { return len(x.chunks) }

// Dimension returns the vector size the index was built with.
func (x *Index) Dimension() int { return x.dimension }

// Chunks returns the indexed chunks in insertion order.
func (x *Index) Chunks() []domain.Chunk { return append([]domain.Chunk(nil), x.chunks...) }

// Vectors returns the indexed vectors in insertion order. Callers must not
// modify them.
func (x *Index) Vectors() [][]float32 { return x.vectors }

// Search returns the k nearest chunks by squared L2 distance. Ties keep
// insertion order.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]domain.RetrievedDoc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) != x.dimension {
		return nil, vectorstore.ErrDimensionMismatch
	}
	if k <= 0 {
		k = 5
	}
	dists := make([]float64, len(x.vectors))
	for i := range x.vectors {
		dists[i] = vectorstore.SquaredL2(x.vectors[i], query)
	}
	idxs := argsortAsc(dists)
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.RetrievedDoc, 0, k)
	for i := 0; i < k; i++ {
		j := idxs[i]
		results = append(results, domain.RetrievedDoc{
			Chunk:    x.chunks[j],
			Source:   x.documentID,
			Distance: dists[j],
		})
	}
	return results, nil
}

// Store keeps one Index per document in process memory.
type Store struct {
	mu      sync.RWMutex
	indices map[string]*Index
}

var _ domain.IndexStore = (*Store)(nil)

func NewStore() *Store { return &Store{indices: make(map[string]*Index)} }

// Create builds the index unless one already exists for documentID.
func (s *Store) Create(_ context.Context, documentID string, chunks []domain.Chunk, vectors [][]float32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indices[documentID]; ok {
		return vectorstore.IndexID(documentID), nil
	}
	idx, err := NewIndex(documentID, chunks, vectors)
	if err != nil {
		return "", err
	}
	s.indices[documentID] = idx
	return vectorstore.IndexID(documentID), nil
}

func (s *Store) Load(_ context.Context, documentID string) (domain.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indices[documentID]
	if !ok {
		return nil, vectorstore.ErrIndexNotFound
	}
	return idx, nil
}

func (s *Store) Exists(_ context.Context, documentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indices[documentID]
	return ok, nil
}

func (s *Store) Delete(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indices[documentID]; !ok {
		return vectorstore.ErrIndexNotFound
	}
	delete(s.indices, documentID)
	return nil
}

func argsortAsc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	quicksort(idxs, vals, 0, len(idxs)-1)
	return idxs
}

// less orders by distance, then by position so equal distances stay stable.
func less(vals []float64, a, b int) bool {
	if vals[a] != vals[b] {
		return vals[a] < vals[b]
	}
	return a < b
}

func quicksort(idxs []int, vals []float64, lo, hi int) {
	if lo >= hi {
		return
	}
	i, j := lo, hi
	pivot := idxs[(lo+hi)/2]
	for i <= j {
		for less(vals, idxs[i], pivot) {
			i++
		}
		for less(vals, pivot, idxs[j]) {
			j--
		}
		if i <= j {
			idxs[i], idxs[j] = idxs[j], idxs[i]
			i++
			j--
		}
	}
	if lo < j {
		quicksort(idxs, vals, lo, j)
	}
	if i < hi {
		quicksort(idxs, vals, i, hi)
	}
}
