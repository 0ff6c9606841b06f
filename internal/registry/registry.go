// Package registry implements the catalog of uploaded documents.
package registry

import (
	"errors"
	"sort"

	"github.com/kxddry/hr-rag/internal/domain"
)

var (
	ErrEntryNotFound = errors.New("registry: entry not found")
	ErrInvalidEntry  = errors.New("registry: entry has no document id")
)

func validate(e domain.RegistryEntry) error {
	if e.DocumentID == "" {
		return ErrInvalidEntry
	}
	return nil
}

// upsert replaces the entry with the same document id in place or appends.
func upsert(entries []domain.RegistryEntry, e domain.RegistryEntry) []domain.RegistryEntry {
	for i := range entries {
		if entries[i].DocumentID == e.DocumentID {
			entries[i] = e
			return entries
		}
	}
	return append(entries, e)
}

func remove(entries []domain.RegistryEntry, documentID string) ([]domain.RegistryEntry, bool) {
	out := entries[:0]
	found := false
	for _, e := range entries {
		if e.DocumentID == documentID {
			found = true
			continue
		}
		out = append(out, e)
	}
	return out, found
}

// sortByTimestamp orders entries oldest first with the id as tie break.
func sortByTimestamp(entries []domain.RegistryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp != entries[j].Timestamp {
			return entries[i].Timestamp < entries[j].Timestamp
		}
		return entries[i].DocumentID < entries[j].DocumentID
	})
}
