package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/logger"
	"github.com/kxddry/hr-rag/internal/registry"
	"github.com/kxddry/hr-rag/internal/vectorstore"
)

// ErrNoContent is returned when a document yields no chunk.
var ErrNoContent = errors.New("service: document has no indexable text")

// documentNamespace seeds the content derived document ids.
var documentNamespace = uuid.MustParse("6f1c2f7e-3a51-4c54-9a4e-2d0f6b1b8c21")

// DocumentID derives a stable id from the file name and its text, so
// uploading the same file twice maps to the same document.
func DocumentID(filename string, pages []domain.Page) string {
	var b strings.Builder
	b.WriteString(filename)
	for _, p := range pages {
		b.WriteString("\f")
		b.WriteString(p.Text)
	}
	return uuid.NewSHA1(documentNamespace, []byte(b.String())).String()
}

// Ingest chunks, embeds and indexes a document and registers it. An empty
// documentID is derived from the content. Ingesting a document that already
// has an index returns the existing index id without writing anything.
func (s *RAGService) Ingest(ctx context.Context, documentID, filename string, pages []domain.Page) (string, error) {
	if documentID == "" {
		documentID = DocumentID(filename, pages)
	}
	log := logger.FromContext(ctx).With("component", "ingest", "document_id", documentID)

	exists, err := s.deps.Store.Exists(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("service: ingest %s: %w", documentID, err)
	}
	if exists {
		if err := s.register(ctx, documentID, filename); err != nil {
			return "", err
		}
		log.Info("document already indexed")
		return vectorstore.IndexID(documentID), nil
	}

	chunks, err := s.deps.Chunker.Chunk(documentID, filename, pages)
	if err != nil {
		return "", fmt.Errorf("service: chunk %s: %w", documentID, err)
	}
	if len(chunks) == 0 {
		return "", ErrNoContent
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.deps.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return "", fmt.Errorf("service: embed %s: %w", documentID, err)
	}
	indexID, err := s.deps.Store.Create(ctx, documentID, chunks, vectors)
	if err != nil {
		return "", fmt.Errorf("service: index %s: %w", documentID, err)
	}
	if err := s.register(ctx, documentID, filename); err != nil {
		return "", err
	}
	log.Info("document indexed", "chunks", len(chunks), "index_id", indexID)
	return indexID, nil
}

// register appends the registry entry unless the document is listed.
func (s *RAGService) register(ctx context.Context, documentID, filename string) error {
	entries, err := s.deps.Registry.List(ctx)
	if err != nil {
		return fmt.Errorf("service: list registry: %w", err)
	}
	for _, e := range entries {
		if e.DocumentID == documentID {
			return nil
		}
	}
	now := time.Now()
	entry := domain.RegistryEntry{
		DocumentID:  documentID,
		DisplayName: filename,
		RequestID:   uuid.NewString(),
		Timestamp:   float64(now.UnixNano()) / 1e9,
		UploadDate:  now.UTC().Format(time.RFC3339),
		IndexKey:    vectorstore.IndexID(documentID),
	}
	if err := s.deps.Registry.Append(ctx, entry); err != nil {
		return fmt.Errorf("service: register %s: %w", documentID, err)
	}
	return nil
}

// Remove deletes the index and the registry entry of a document. Either
// being absent already is not an error.
func (s *RAGService) Remove(ctx context.Context, documentID string) error {
	var errs []error
	if err := s.deps.Store.Delete(ctx, documentID); err != nil && !errors.Is(err, vectorstore.ErrIndexNotFound) {
		errs = append(errs, fmt.Errorf("service: delete index %s: %w", documentID, err))
	}
	if err := s.deps.Registry.Remove(ctx, documentID); err != nil && !errors.Is(err, registry.ErrEntryNotFound) {
		errs = append(errs, fmt.Errorf("service: unregister %s: %w", documentID, err))
	}
	return errors.Join(errs...)
}

// Documents lists the registered documents.
func (s *RAGService) Documents(ctx context.Context) ([]domain.RegistryEntry, error) {
	return s.deps.Registry.List(ctx)
}
