// internal/session/store.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Draft is the accumulating wizard state for one visitor. It lives only in
// the session store and is never persisted to the database.
type Draft map[string]interface{}

func (d Draft) Has(key string) bool {
	v, ok := d[key]
	return ok && v != nil
}

func (d Draft) GetString(key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

func (d Draft) GetBool(key string) bool {
	if v, ok := d[key].(bool); ok {
		return v
	}
	return false
}

func (d Draft) GetInt(key string) int {
	switch v := d[key].(type) {
	case int:
		return v
	case float64:
		// JSON round-trips numbers as float64
		return int(v)
	}
	return 0
}

// DraftStore holds wizard drafts keyed by session ID. Merges are additive;
// a draft disappears either via Clear or via TTL expiry.
type DraftStore interface {
	Get(ctx context.Context, sessionID string) (Draft, error)
	Merge(ctx context.Context, sessionID string, fields map[string]interface{}) error
	Clear(ctx context.Context, sessionID string) error
}

const keyPrefix = "admissions:draft:"

// RedisStore is the production DraftStore.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (Draft, error) {
	data, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return Draft{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}

	var draft Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return draft, nil
}

func (s *RedisStore) Merge(ctx context.Context, sessionID string, fields map[string]interface{}) error {
	draft, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	for k, v := range fields {
		draft[k] = v
	}

	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	// Each write refreshes the session lifetime
	if err := s.client.Set(ctx, keyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// MemoryStore keeps drafts in process memory. Used in tests and in
// development environments without Redis.
type MemoryStore struct {
	mtx    sync.Mutex
	drafts map[string]Draft
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]Draft)}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (Draft, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	draft := Draft{}
	for k, v := range s.drafts[sessionID] {
		draft[k] = v
	}
	return draft, nil
}

func (s *MemoryStore) Merge(ctx context.Context, sessionID string, fields map[string]interface{}) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	draft, ok := s.drafts[sessionID]
	if !ok {
		draft = Draft{}
		s.drafts[sessionID] = draft
	}
	for k, v := range fields {
		draft[k] = v
	}
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.drafts, sessionID)
	return nil
}
