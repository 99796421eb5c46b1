package session

import (
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/ai"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

// Effect is a side-effect request returned by a transition. The machine
// never performs I/O itself.
type Effect interface {
	effect()
}

// CallCollaborator asks for one diagnosis round. Its outcome must be fed
// back as RoundSucceeded or RoundFailed.
type CallCollaborator struct {
	Round   RoundKind
	Request ai.Request
}

// PersistRecord upserts a record into history.
type PersistRecord struct {
	Record *domain.DiagnosisResult
}

// RefreshHistory re-reads the whole history after a write.
type RefreshHistory struct{}

// StartChat opens the follow-up conversation for a finalized record.
type StartChat struct {
	Record *domain.DiagnosisResult
}

func (CallCollaborator) effect() {}
func (PersistRecord) effect()    {}
func (RefreshHistory) effect()   {}
func (StartChat) effect()        {}
