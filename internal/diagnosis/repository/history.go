package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

// HistoryStore persists finalized diagnoses per owner, keyed by record id.
type HistoryStore interface {
	// Put upserts the record by id.
	Put(ctx context.Context, owner string, rec *domain.DiagnosisResult) error
	// GetAll returns every record, newest timestamp first.
	GetAll(ctx context.Context, owner string) ([]*domain.DiagnosisResult, error)
	// Clear removes every record of the owner.
	Clear(ctx context.Context, owner string) error
}

// sortNewestFirst orders by timestamp descending, then id descending so
// that ties are stable across backends.
func sortNewestFirst(recs []*domain.DiagnosisResult) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Timestamp != recs[j].Timestamp {
			return recs[i].Timestamp > recs[j].Timestamp
		}
		return strings.Compare(recs[i].ID, recs[j].ID) > 0
	})
}
