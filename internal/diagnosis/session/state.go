// Package session holds the diagnosis session context and the pure state
// machine that advances it.
package session

import (
	"strings"
	"time"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/ai"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

type State string

const (
	StateIdle              State = "idle"
	StateAwaitingInput     State = "awaiting-input"
	StateAnalyzing         State = "analyzing"
	StateConfirmExtraction State = "confirm-extraction"
	StateFollowUp          State = "follow-up"
	StateComplete          State = "complete"
	StateError             State = "error"
	StateTooShort          State = "too-short"
	StateRechecking        State = "rechecking"
)

// Busy reports whether a collaborator round is in flight.
func (s State) Busy() bool {
	return s == StateAnalyzing || s == StateRechecking
}

// RoundKind identifies which step of a chain an in-flight round belongs to.
type RoundKind string

const (
	RoundInitial      RoundKind = "initial"
	RoundConfirmation RoundKind = "confirmation"
	RoundFollowUp     RoundKind = "follow_up"
	RoundRecheck      RoundKind = "recheck"
)

// HeldKind tags the role of the diagnosis a session holds.
type HeldKind string

const (
	HeldAwaitingConfirmation HeldKind = "awaiting_confirmation"
	HeldAwaitingFollowUp     HeldKind = "awaiting_follow_up"
	HeldFinal                HeldKind = "final"
	HeldRecheck              HeldKind = "recheck"
)

// Held is a diagnosis tagged with its role. Values are only built through
// the constructors below so that each role keeps its invariants.
type Held struct {
	Kind   HeldKind                `json:"kind"`
	Record *domain.DiagnosisResult `json:"record"`
}

func (h *Held) Pending() bool {
	return h != nil && (h.Kind == HeldAwaitingConfirmation || h.Kind == HeldAwaitingFollowUp)
}

func (h *Held) Finalized() bool {
	return h != nil && (h.Kind == HeldFinal || h.Kind == HeldRecheck)
}

func awaitingConfirmation(r *domain.DiagnosisResult) *Held {
	return &Held{Kind: HeldAwaitingConfirmation, Record: r}
}

func awaitingFollowUp(r *domain.DiagnosisResult) *Held {
	return &Held{Kind: HeldAwaitingFollowUp, Record: r}
}

func final(r *domain.DiagnosisResult) *Held {
	return &Held{Kind: HeldFinal, Record: r}
}

// MissingComparisonNote stands in when a recheck answer carries no
// comparison with the prior diagnosis.
const MissingComparisonNote = "이전 진단과의 비교 내용을 받지 못했습니다. 현재 진단 결과를 참고해 주세요."

// recheck marks r as a recheck of priorID. A recheck never pauses for
// follow-up, so its triage fields are cleared, and it always carries a
// comparison note.
func recheck(r *domain.DiagnosisResult, priorID string) *Held {
	r.IsRecheck = true
	r.FollowUpSessionID = priorID
	r.NeedsFollowUp = false
	r.FollowUpQuestions = nil
	if strings.TrimSpace(r.BeforeAfterNote) == "" {
		r.BeforeAfterNote = MissingComparisonNote
	}
	return &Held{Kind: HeldRecheck, Record: r}
}

// Inputs are the user-supplied inputs of the current chain. They are kept
// so that continuation rounds can resend them.
type Inputs struct {
	Audio    *domain.MediaInput `json:"audio,omitempty"`
	Image    *domain.MediaInput `json:"image,omitempty"`
	Text     string             `json:"text,omitempty"`
	ImageURL string             `json:"imageUrl,omitempty"`
}

func (in *Inputs) request() ai.Request {
	if in == nil {
		return ai.Request{}
	}
	return ai.Request{Audio: in.Audio, Image: in.Image, Text: in.Text}
}

// Session is the owned context of one diagnosis session. It is passed to
// and returned from Machine.Apply and never mutated in place.
type Session struct {
	ID    string           `json:"id"`
	Owner string           `json:"owner"`
	State State            `json:"state"`
	Mode  domain.InputMode `json:"mode,omitempty"`

	Inputs    *Inputs               `json:"inputs,omitempty"`
	Held      *Held                 `json:"held,omitempty"`
	Confirmed *domain.ConfirmedData `json:"confirmed,omitempty"`
	Answers   domain.Answers        `json:"answers,omitempty"`

	ChainID        string             `json:"chainId,omitempty"`
	ChainConfirmed bool               `json:"chainConfirmed,omitempty"`
	InFlight       RoundKind          `json:"inFlight,omitempty"`
	Recheck        *ai.RecheckContext `json:"recheck,omitempty"`
	Notice         string             `json:"notice,omitempty"`
	LastError      string             `json:"lastError,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// New returns an idle session.
func New(id, owner string, now time.Time) Session {
	return Session{ID: id, Owner: owner, State: StateIdle, CreatedAt: now, UpdatedAt: now}
}

// Pending returns the held diagnosis awaiting confirmation or answers.
func (s Session) Pending() *domain.DiagnosisResult {
	if s.Held.Pending() {
		return s.Held.Record
	}
	return nil
}

// Result returns the finalized diagnosis shown in the complete state.
func (s Session) Result() *domain.DiagnosisResult {
	if s.Held.Finalized() {
		return s.Held.Record
	}
	return nil
}
