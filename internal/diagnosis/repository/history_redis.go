package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

const (
	historyKeyPrefix = "fixitnow:history:" // Hash of record id -> JSON: fixitnow:history:{owner}
)

// RedisHistoryStore keeps one hash per owner.
type RedisHistoryStore struct {
	client *redis.Client
}

// NewRedisHistoryStore creates a new RedisHistoryStore
func NewRedisHistoryStore(client *redis.Client) *RedisHistoryStore {
	return &RedisHistoryStore{client: client}
}

// Put upserts a record
func (r *RedisHistoryStore) Put(ctx context.Context, owner string, rec *domain.DiagnosisResult) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := r.client.HSet(ctx, r.historyKey(owner), rec.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// GetAll returns all records of an owner, newest first
func (r *RedisHistoryStore) GetAll(ctx context.Context, owner string) ([]*domain.DiagnosisResult, error) {
	values, err := r.client.HGetAll(ctx, r.historyKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	recs := make([]*domain.DiagnosisResult, 0, len(values))
	for id, data := range values {
		var rec domain.DiagnosisResult
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
		}
		recs = append(recs, &rec)
	}
	sortNewestFirst(recs)
	return recs, nil
}

// Clear deletes all records of an owner
func (r *RedisHistoryStore) Clear(ctx context.Context, owner string) error {
	if err := r.client.Del(ctx, r.historyKey(owner)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (r *RedisHistoryStore) historyKey(owner string) string {
	return historyKeyPrefix + owner
}
