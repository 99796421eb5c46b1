package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/session"
)

const (
	sessionKeyPrefix      = "fixitnow:session:"  // Session context: fixitnow:session:{session_id}
	ownerSessionSetPrefix = "fixitnow:sessions:" // Set of session IDs for an owner: fixitnow:sessions:{owner}
	DefaultSessionTTL     = 24 * time.Hour
)

// SessionStore holds live session contexts between requests.
type SessionStore interface {
	Get(ctx context.Context, id string) (session.Session, error)
	Put(ctx context.Context, s session.Session) error
	Delete(ctx context.Context, id string) error
	// ListIDs may include ids whose session has already expired.
	ListIDs(ctx context.Context, owner string) ([]string, error)
}

// RedisSessionStore stores each session as a JSON string with a sliding TTL.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a new RedisSessionStore
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Get retrieves a session by its ID
func (r *RedisSessionStore) Get(ctx context.Context, id string) (session.Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(id)).Result()
	if err == redis.Nil {
		return session.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return session.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return s, nil
}

// Put writes the session and refreshes its TTL
func (r *RedisSessionStore) Put(ctx context.Context, s session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ownerKey := r.ownerSessionSetKey(s.Owner)
	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.sessionKey(s.ID), data, r.ttl)
	pipe.SAdd(ctx, ownerKey, s.ID)
	pipe.Expire(ctx, ownerKey, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to put session: %w", err)
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if err == domain.ErrSessionNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.sessionKey(id))
	pipe.SRem(ctx, r.ownerSessionSetKey(s.Owner), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListIDs returns the indexed session IDs of an owner
func (r *RedisSessionStore) ListIDs(ctx context.Context, owner string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.ownerSessionSetKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

func (r *RedisSessionStore) sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *RedisSessionStore) ownerSessionSetKey(owner string) string {
	return ownerSessionSetPrefix + owner
}

// MemorySessionStore is a bounded in-process store. Least recently used
// sessions are evicted once size is reached, and entries expire after ttl.
type MemorySessionStore struct {
	cache *expirable.LRU[string, session.Session]
}

func NewMemorySessionStore(size int, ttl time.Duration) *MemorySessionStore {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{cache: expirable.NewLRU[string, session.Session](size, nil, ttl)}
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (session.Session, error) {
	s, ok := m.cache.Get(id)
	if !ok {
		return session.Session{}, domain.ErrSessionNotFound
	}
	return s, nil
}

func (m *MemorySessionStore) Put(_ context.Context, s session.Session) error {
	m.cache.Add(s.ID, s)
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.cache.Remove(id)
	return nil
}

func (m *MemorySessionStore) ListIDs(_ context.Context, owner string) ([]string, error) {
	var ids []string
	for _, s := range m.cache.Values() {
		if s.Owner == owner {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}
