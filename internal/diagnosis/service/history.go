package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/repository"
	"github.com/fixitnow/fixitnow-backend/internal/logging"
)

// History is the best-effort view of a HistoryStore. Store failures are
// logged and swallowed so they never block a session.
type History struct {
	store   repository.HistoryStore
	log     *zap.Logger
	metrics *Metrics
}

func NewHistory(store repository.HistoryStore, log *zap.Logger, metrics *Metrics) *History {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &History{store: store, log: log, metrics: metrics}
}

func (h *History) Save(ctx context.Context, owner string, rec *domain.DiagnosisResult) {
	if err := h.store.Put(ctx, owner, rec); err != nil {
		h.metrics.recordHistoryFailure()
		logging.FromContext(ctx, h.log).Warn("history save failed",
			zap.String("owner", owner), zap.String("record_id", rec.ID), zap.Error(err))
	}
}

// List returns the owner's records newest first, or an empty list when the
// store cannot be read.
func (h *History) List(ctx context.Context, owner string) []*domain.DiagnosisResult {
	recs, err := h.store.GetAll(ctx, owner)
	if err != nil {
		h.metrics.recordHistoryFailure()
		logging.FromContext(ctx, h.log).Warn("history read failed", zap.String("owner", owner), zap.Error(err))
		return []*domain.DiagnosisResult{}
	}
	if recs == nil {
		recs = []*domain.DiagnosisResult{}
	}
	return recs
}

func (h *History) Clear(ctx context.Context, owner string) {
	if err := h.store.Clear(ctx, owner); err != nil {
		h.metrics.recordHistoryFailure()
		logging.FromContext(ctx, h.log).Warn("history clear failed", zap.String("owner", owner), zap.Error(err))
	}
}

// Find looks a record up by id in the owner's history.
func (h *History) Find(ctx context.Context, owner, id string) (*domain.DiagnosisResult, error) {
	for _, rec := range h.List(ctx, owner) {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}
