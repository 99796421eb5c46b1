package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

// MemoryHistoryStore is a process-local history store. Records are stored
// as JSON so reads never alias what callers hold.
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string][]byte
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{records: make(map[string]map[string][]byte)}
}

func (s *MemoryHistoryStore) Put(_ context.Context, owner string, rec *domain.DiagnosisResult) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.records[owner]
	if !ok {
		byID = make(map[string][]byte)
		s.records[owner] = byID
	}
	byID[rec.ID] = data
	return nil
}

func (s *MemoryHistoryStore) GetAll(_ context.Context, owner string) ([]*domain.DiagnosisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*domain.DiagnosisResult, 0, len(s.records[owner]))
	for _, data := range s.records[owner] {
		var rec domain.DiagnosisResult
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		recs = append(recs, &rec)
	}
	sortNewestFirst(recs)
	return recs, nil
}

func (s *MemoryHistoryStore) Clear(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, owner)
	return nil
}
