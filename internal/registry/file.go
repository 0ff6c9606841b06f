package registry

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
)

// FileRegistry stores the catalog as {"files": [...], "last_updated": ts}.
type FileRegistry struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

var _ domain.Registry = (*FileRegistry)(nil)

type fileLayout struct {
	Files       []json.RawMessage `json:"files"`
	LastUpdated float64           `json:"last_updated,omitempty"`
}

func NewFileRegistry(path string) (*FileRegistry, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("registry: ensure directory: %w", err)
	}
	return &FileRegistry{path: path, now: time.Now}, nil
}

// List returns the entries in file order. Malformed entries are skipped.
func (r *FileRegistry) List(ctx context.Context) ([]domain.RegistryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(ctx)
}

func (r *FileRegistry) Append(ctx context.Context, entry domain.RegistryEntry) error {
	if err := validate(entry); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, err := r.read(ctx)
	if err != nil {
		return err
	}
	return r.write(upsert(entries, entry))
}

func (r *FileRegistry) Remove(ctx context.Context, documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, err := r.read(ctx)
	if err != nil {
		return err
	}
	entries, found := remove(entries, documentID)
	if !found {
		return ErrEntryNotFound
	}
	return r.write(entries)
}

func (r *FileRegistry) read(ctx context.Context) ([]domain.RegistryEntry, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read %q: %w", r.path, err)
	}
	var layout fileLayout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("registry: decode %q: %w", r.path, err)
	}
	entries := make([]domain.RegistryEntry, 0, len(layout.Files))
	for i, raw := range layout.Files {
		var e domain.RegistryEntry
		if err := json.Unmarshal(raw, &e); err != nil || e.DocumentID == "" {
			logger.FromContext(ctx).Warn("skipping malformed registry entry", "path", r.path, "position", i)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *FileRegistry) write(entries []domain.RegistryEntry) error {
	layout := fileLayout{
		Files:       make([]json.RawMessage, 0, len(entries)),
		LastUpdated: float64(r.now().Unix()),
	}
	for _, e := range entries {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("registry: encode entry %q: %w", e.DocumentID, err)
		}
		layout.Files = append(layout.Files, raw)
	}
	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: encode: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("registry: write: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("registry: commit: %w", err)
	}
	return nil
}
