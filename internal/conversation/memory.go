// Package conversation keeps the recent turns of each conversation.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kxddry/hr-rag/internal/config"
	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/logger"
)

// Memory holds the last turns of the most recently used conversations in
// process. With a Redis client the turns are also written to one list per
// conversation, and reads prefer Redis.
type Memory struct {
	mu       sync.Mutex
	local    *lru.Cache[string, []domain.ChatTurn]
	client   redis.UniversalClient
	prefix   string
	maxTurns int
	ttl      time.Duration
}

var _ domain.ConversationLog = (*Memory)(nil)

// NewMemory builds a memory; client may be nil.
func NewMemory(cfg config.ConversationConfig, client redis.UniversalClient) (*Memory, error) {
	size := cfg.Size
	if size <= 0 {
		size = 1024
	}
	local, err := lru.New[string, []domain.ChatTurn](size)
	if err != nil {
		return nil, fmt.Errorf("conversation: init cache: %w", err)
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 50
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "hrrag:conversation:"
	}
	return &Memory{
		local:    local,
		client:   client,
		prefix:   prefix,
		maxTurns: maxTurns,
		ttl:      time.Duration(cfg.TTLSecs) * time.Second,
	}, nil
}

// key scopes turns by conversation, or by user for callers without one.
func key(userID, conversationID string) string {
	if conversationID != "" {
		return conversationID
	}
	return "user:" + userID
}

func (m *Memory) Append(ctx context.Context, userID, conversationID string, turn domain.ChatTurn) error {
	k := key(userID, conversationID)
	m.mu.Lock()
	turns, _ := m.local.Get(k)
	turns = append(append([]domain.ChatTurn(nil), turns...), turn)
	if len(turns) > m.maxTurns {
		turns = turns[len(turns)-m.maxTurns:]
	}
	m.local.Add(k, turns)
	m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	raw, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("conversation: encode turn: %w", err)
	}
	rk := m.prefix + k
	pipe := m.client.TxPipeline()
	pipe.RPush(ctx, rk, raw)
	pipe.LTrim(ctx, rk, int64(-m.maxTurns), -1)
	if m.ttl > 0 {
		pipe.Expire(ctx, rk, m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conversation: redis append %q: %w", k, err)
	}
	return nil
}

// Recent returns up to n of the latest turns, oldest first.
func (m *Memory) Recent(ctx context.Context, userID, conversationID string, n int) []domain.ChatTurn {
	if n <= 0 {
		return nil
	}
	k := key(userID, conversationID)
	if m.client != nil {
		turns, err := m.remote(ctx, k, n)
		if err == nil {
			return turns
		}
		logger.FromContext(ctx).With("component", "conversation").Warn("redis read failed, using local turns", "conversation", k, "error", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	turns, _ := m.local.Get(k)
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]domain.ChatTurn(nil), turns...)
}

func (m *Memory) remote(ctx context.Context, k string, n int) ([]domain.ChatTurn, error) {
	raws, err := m.client.LRange(ctx, m.prefix+k, int64(-n), -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.ChatTurn, 0, len(raws))
	for _, raw := range raws {
		var t domain.ChatTurn
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Forget drops a conversation.
func (m *Memory) Forget(ctx context.Context, userID, conversationID string) error {
	k := key(userID, conversationID)
	m.mu.Lock()
	m.local.Remove(k)
	m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	if err := m.client.Del(ctx, m.prefix+k).Err(); err != nil {
		return fmt.Errorf("conversation: redis forget %q: %w", k, err)
	}
	return nil
}
