package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/logger"
)

// RedisRegistry stores one JSON entry per hash field under key.
type RedisRegistry struct {
	client redis.UniversalClient
	key    string
}

var _ domain.Registry = (*RedisRegistry)(nil)

func NewRedisRegistry(client redis.UniversalClient, key string) *RedisRegistry {
	if key == "" {
		key = "hrrag:registry"
	}
	return &RedisRegistry{client: client, key: key}
}

// List returns entries oldest first. Fields that fail to decode are skipped.
func (r *RedisRegistry) List(ctx context.Context) ([]domain.RegistryEntry, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("registry: redis list: %w", err)
	}
	out := make([]domain.RegistryEntry, 0, len(fields))
	for field, raw := range fields {
		var e domain.RegistryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil || e.DocumentID == "" {
			logger.FromContext(ctx).Warn("skipping malformed registry entry", "key", r.key, "field", field)
			continue
		}
		out = append(out, e)
	}
	sortByTimestamp(out)
	return out, nil
}

func (r *RedisRegistry) Append(ctx context.Context, e domain.RegistryEntry) error {
	if err := validate(e); err != nil {
		return err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("registry: encode entry %q: %w", e.DocumentID, err)
	}
	if err := r.client.HSet(ctx, r.key, e.DocumentID, raw).Err(); err != nil {
		return fmt.Errorf("registry: redis append %q: %w", e.DocumentID, err)
	}
	return nil
}

func (r *RedisRegistry) Remove(ctx context.Context, documentID string) error {
	n, err := r.client.HDel(ctx, r.key, documentID).Result()
	if err != nil {
		return fmt.Errorf("registry: redis remove %q: %w", documentID, err)
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}
