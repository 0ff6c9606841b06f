// Package filesystem persists each document index as a JSON snapshot and
// serves searches from memory after loading.
package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/logger"
	"github.com/kxddry/hr-rag/internal/vectorstore"
	"github.com/kxddry/hr-rag/internal/vectorstore/memory"
)

// Store writes one <index id>.json file per document under dir.
type Store struct {
	mu       sync.Mutex
	dir      string
	embedder string
}

var _ domain.IndexStore = (*Store)(nil)

type snapshot struct {
	DocumentID string         `json:"document_id"`
	Embedder   string         `json:"embedder,omitempty"`
	Dimension  int            `json:"dimension"`
	CreatedAt  time.Time      `json:"created_at"`
	Records    []snapshotItem `json:"records"`
}

type snapshotItem struct {
	Chunk     domain.Chunk `json:"chunk"`
	Embedding []float32    `json:"embedding"`
}

// NewStore creates dir if needed. embedder names the model the vectors come
// from; loading a snapshot built by another model logs a warning.
func NewStore(dir, embedder string) (*Store, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("filesystem: ensure directory %q: %w", dir, err)
	}
	return &Store{dir: dir, embedder: embedder}, nil
}

func (s *Store) path(documentID string) string {
	return filepath.Join(s.dir, vectorstore.IndexID(documentID)+".json")
}

// Create writes the snapshot unless one already exists for documentID.
func (s *Store) Create(_ context.Context, documentID string, chunks []domain.Chunk, vectors [][]float32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := vectorstore.IndexID(documentID)
	path := s.path(documentID)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}
	dim, err := vectorstore.Validate(chunks, vectors)
	if err != nil {
		return "", err
	}
	snap := snapshot{
		DocumentID: documentID,
		Embedder:   s.embedder,
		Dimension:  dim,
		CreatedAt:  time.Now().UTC(),
		Records:    make([]snapshotItem, len(chunks)),
	}
	for i := range chunks {
		snap.Records[i] = snapshotItem{Chunk: chunks[i], Embedding: vectors[i]}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("filesystem: encode snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("filesystem: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("filesystem: commit snapshot: %w", err)
	}
	return id, nil
}

func (s *Store) Load(ctx context.Context, documentID string) (domain.Index, error) {
	path := s.path(documentID)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, vectorstore.ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("filesystem: read %q: %w", path, err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("filesystem: decode %q: %w", path, err)
	}
	if s.embedder != "" && snap.Embedder != "" && snap.Embedder != s.embedder {
		logger.FromContext(ctx).Warn("index built with a different embedder",
			"document_id", documentID, "index_embedder", snap.Embedder, "embedder", s.embedder)
	}
	chunks := make([]domain.Chunk, len(snap.Records))
	vectors := make([][]float32, len(snap.Records))
	for i, r := range snap.Records {
		chunks[i] = r.Chunk
		vectors[i] = r.Embedding
	}
	idx, err := memory.NewIndex(documentID, chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("filesystem: rebuild %q: %w", path, err)
	}
	return idx, nil
}

func (s *Store) Exists(_ context.Context, documentID string) (bool, error) {
	_, err := os.Stat(s.path(documentID))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Delete(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(documentID))
	if errors.Is(err, os.ErrNotExist) {
		return vectorstore.ErrIndexNotFound
	}
	return err
}
