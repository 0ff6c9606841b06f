// Package retriever selects candidate documents, searches their indices and
// merges the hits by distance.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/hrterms"
	"github.com/kxddry/hr-rag/internal/logger"
)

// ErrNoQuery is returned when Search is called with an empty query.
var ErrNoQuery = errors.New("retriever: empty query")

// Source is a loaded index together with its registry entry.
type Source struct {
	Entry domain.RegistryEntry
	Index domain.Index
}

// Retriever searches per-document indices. Indices are immutable, so
// searches run concurrently.
type Retriever struct {
	store    domain.IndexStore
	embedder domain.Embedder
	parallel int
}

// New returns a Retriever. parallel bounds concurrent loads and searches.
func New(store domain.IndexStore, embedder domain.Embedder, parallel int) *Retriever {
	if parallel <= 0 {
		parallel = 8
	}
	return &Retriever{store: store, embedder: embedder, parallel: parallel}
}

// Load opens the index of every entry. Documents whose index cannot be
// loaded are skipped. The result keeps the order of entries.
func (r *Retriever) Load(ctx context.Context, entries []domain.RegistryEntry) []Source {
	log := logger.FromContext(ctx).With("component", "retriever")
	slots := make([]domain.Index, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i, e := range entries {
		g.Go(func() error {
			idx, err := r.store.Load(gctx, e.DocumentID)
			if err != nil {
				log.Warn("skipping document without index", "document_id", e.DocumentID, "error", err)
				return nil
			}
			slots[i] = idx
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Source, 0, len(entries))
	for i, idx := range slots {
		if idx != nil {
			out = append(out, Source{Entry: entries[i], Index: idx})
		}
	}
	log.Debug("indices loaded", "requested", len(entries), "loaded", len(out))
	return out
}

// Search embeds query once and runs it against every source, returning up
// to k hits per source merged in ascending distance. A failing index is
// skipped; only an embedding failure is returned.
func (r *Retriever) Search(ctx context.Context, sources []Source, query string, k int) ([]domain.RetrievedDoc, error) {
	if query == "" {
		return nil, ErrNoQuery
	}
	if len(sources) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 5
	}
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retriever: embed query: %w", err)
	}

	log := logger.FromContext(ctx).With("component", "retriever")
	hits := make([][]domain.RetrievedDoc, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i, src := range sources {
		g.Go(func() error {
			res, err := src.Index.Search(gctx, vec, k)
			if err != nil {
				log.Warn("index search failed", "document_id", src.Entry.DocumentID, "error", err)
				return nil
			}
			for j := range res {
				res[j] = tag(res[j], src.Entry)
			}
			hits[i] = res
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return merge(hits), nil
}

// SearchChecked searches with the expanded query and, when none of the hits
// mention an HR term, retries with the raw question. The retry is kept only
// if its hits do.
func (r *Retriever) SearchChecked(ctx context.Context, sources []Source, expanded, raw string, k int) ([]domain.RetrievedDoc, error) {
	docs, err := r.Search(ctx, sources, expanded, k)
	if err != nil || len(docs) == 0 || HasKeywords(docs) || raw == "" || raw == expanded {
		return docs, err
	}
	fallback, err := r.Search(ctx, sources, raw, k)
	if err == nil && len(fallback) > 0 && HasKeywords(fallback) {
		return fallback, nil
	}
	logger.FromContext(ctx).Debug("no HR terms in retrieved text, keeping expanded results")
	return docs, nil
}

// HasKeywords reports whether any retrieved chunk mentions an HR term.
func HasKeywords(docs []domain.RetrievedDoc) bool {
	for _, d := range docs {
		if hrterms.InText(d.Chunk.Text) {
			return true
		}
	}
	return false
}

func tag(d domain.RetrievedDoc, e domain.RegistryEntry) domain.RetrievedDoc {
	d.Source = e.DocumentID
	if e.DisplayName != "" {
		d.Chunk.Source = e.DisplayName
	}
	d.Chunk.Section = SectionOf(d.Chunk)
	return d
}

// merge flattens per-source hits and sorts them by distance. Ties keep
// source order and then in-index order.
func merge(hits [][]domain.RetrievedDoc) []domain.RetrievedDoc {
	var out []domain.RetrievedDoc
	for _, h := range hits {
		out = append(out, h...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}
