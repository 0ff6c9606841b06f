package registry

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kxddry/hr-rag/internal/domain"
)

const listKey = "entries"

// Cached fronts a registry with a short-lived copy of List. Staleness is
// bounded by the TTL; writes through Cached invalidate immediately.
type Cached struct {
	inner domain.Registry
	cache *expirable.LRU[string, []domain.RegistryEntry]
}

var _ domain.Registry = (*Cached)(nil)

func NewCached(inner domain.Registry, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Cached{
		inner: inner,
		cache: expirable.NewLRU[string, []domain.RegistryEntry](1, nil, ttl),
	}
}

func (c *Cached) List(ctx context.Context) ([]domain.RegistryEntry, error) {
	if entries, ok := c.cache.Get(listKey); ok {
		return append([]domain.RegistryEntry(nil), entries...), nil
	}
	entries, err := c.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Add(listKey, append([]domain.RegistryEntry(nil), entries...))
	return entries, nil
}

func (c *Cached) Append(ctx context.Context, e domain.RegistryEntry) error {
	defer c.Invalidate()
	return c.inner.Append(ctx, e)
}

func (c *Cached) Remove(ctx context.Context, documentID string) error {
	defer c.Invalidate()
	return c.inner.Remove(ctx, documentID)
}

// Invalidate drops the cached listing.
func (c *Cached) Invalidate() {
	c.cache.Purge()
}
