package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/ai"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

type handler func(s Session, e Event) (Session, []Effect, error)

// Machine advances sessions. Apply is pure apart from the injected clock
// and id generator.
type Machine struct {
	now   func() time.Time
	newID func() string
	table map[State]map[EventKind]handler
}

type Option func(*Machine)

func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(m *Machine) { m.newID = newID }
}

func NewMachine(opts ...Option) *Machine {
	m := &Machine{now: time.Now, newID: NewDiagnosisID}
	for _, o := range opts {
		o(m)
	}

	collecting := map[EventKind]handler{
		EventSelectInput: m.selectInput,
		EventSubmit:      m.submit,
		EventRejectInput: m.rejectInput,
		EventLoadRecord:  m.loadRecord,
		EventReset:       m.reset,
	}
	inFlight := map[EventKind]handler{
		EventRoundSucceeded: m.roundSucceeded,
		EventRoundFailed:    m.roundFailed,
	}
	m.table = map[State]map[EventKind]handler{
		StateIdle:          collecting,
		StateAwaitingInput: collecting,
		StateTooShort:      collecting,
		StateAnalyzing:     inFlight,
		StateRechecking:    inFlight,
		StateConfirmExtraction: {
			EventConfirmExtraction:  m.confirmExtraction,
			EventCancelConfirmation: m.reset,
			EventReset:              m.reset,
		},
		StateFollowUp: {
			EventSubmitAnswers: m.submitAnswers,
			EventSkipFollowUp:  m.skipFollowUp,
			EventReset:         m.reset,
		},
		StateComplete: {
			EventRecordResolution: m.recordResolution,
			EventRequestRecheck:   m.requestRecheck,
			EventOpenChat:         m.openChat,
			EventLoadRecord:       m.loadRecord,
			EventReset:            m.reset,
		},
		StateError: {
			EventReset: m.reset,
		},
	}
	return m
}

// NewDiagnosisID returns a time-ordered unique id.
func NewDiagnosisID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Accepts reports whether the state has a transition for the event kind.
func (m *Machine) Accepts(state State, kind EventKind) bool {
	_, ok := m.table[state][kind]
	return ok
}

// Apply runs one transition. On error the session is returned unchanged.
func (m *Machine) Apply(s Session, e Event) (Session, []Effect, error) {
	if e == nil {
		return s, nil, fmt.Errorf("%w: nil event", domain.ErrInvalidTransition)
	}
	h, ok := m.table[s.State][e.Kind()]
	if !ok {
		if s.State.Busy() {
			return s, nil, domain.ErrSessionBusy
		}
		return s, nil, fmt.Errorf("%w: %s in state %s", domain.ErrInvalidTransition, e.Kind(), s.State)
	}

	next, effects, err := h(s, e)
	if err != nil {
		return s, nil, err
	}
	next.UpdatedAt = m.now()
	return next, effects, nil
}

func (m *Machine) selectInput(s Session, e Event) (Session, []Effect, error) {
	ev := e.(SelectInput)
	if !ev.Mode.Valid() {
		return s, nil, domain.ErrInvalidInputMode
	}
	next := cleared(s)
	next.Mode = ev.Mode
	next.State = StateAwaitingInput
	return next, nil, nil
}

func (m *Machine) submit(s Session, e Event) (Session, []Effect, error) {
	ev := e.(Submit)
	in := &Inputs{
		Audio: present(ev.Audio),
		Image: present(ev.Image),
		Text:  strings.TrimSpace(ev.Text),
	}
	if in.Image != nil {
		in.ImageURL = displayURL(ev.ImageURL, in.Image)
	}
	req := in.request()
	if err := req.Validate(); err != nil {
		return s, nil, err
	}

	next := cleared(s)
	next.Mode = s.Mode
	next.Inputs = in
	next.State = StateAnalyzing
	next.InFlight = RoundInitial
	return next, []Effect{CallCollaborator{Round: RoundInitial, Request: req}}, nil
}

func (m *Machine) rejectInput(s Session, e Event) (Session, []Effect, error) {
	ev := e.(RejectInput)
	next := cleared(s)
	next.Mode = s.Mode
	next.State = StateTooShort
	next.Notice = ev.Notice
	return next, nil, nil
}

func (m *Machine) roundFailed(s Session, e Event) (Session, []Effect, error) {
	ev := e.(RoundFailed)
	next := s
	next.State = StateError
	next.InFlight = ""
	next.Held = nil
	next.LastError = "diagnosis failed"
	if ev.Err != nil {
		next.LastError = ev.Err.Error()
	}
	return next, nil, nil
}

// roundSucceeded stamps the response and routes it through the gates:
// extraction confirmation first, then follow-up, then finalization.
func (m *Machine) roundSucceeded(s Session, e Event) (Session, []Effect, error) {
	ev := e.(RoundSucceeded)

	rec := (&domain.DiagnosisResult{Diagnosis: ev.Diagnosis}).Clone()
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return m.roundFailed(s, RoundFailed{Err: err})
	}

	rec.Timestamp = m.now().UnixMilli()
	if s.Inputs != nil && s.Inputs.Image != nil {
		rec.ImageURL = s.Inputs.ImageURL
	}

	next := s
	next.InFlight = ""

	if s.InFlight == RoundRecheck {
		if s.Recheck == nil {
			return m.roundFailed(s, RoundFailed{Err: errors.New("recheck round without prior reference")})
		}
		rec.ID = m.newID()
		return m.finalize(next, recheck(rec, s.Recheck.PriorID))
	}

	// the comparison note belongs to rechecks only
	rec.BeforeAfterNote = ""
	if next.ChainID == "" {
		next.ChainID = m.newID()
	}
	rec.ID = next.ChainID
	if s.Confirmed != nil {
		cd := *s.Confirmed
		rec.UserConfirmedData = &cd
	}

	if s.InFlight == RoundFollowUp {
		rec.UserAnswers = s.Answers.Clone()
		return m.finalize(next, final(rec))
	}

	if s.Inputs != nil && s.Inputs.Image != nil && rec.HasExtraction() && !s.ChainConfirmed {
		next.State = StateConfirmExtraction
		next.Held = awaitingConfirmation(rec)
		return next, nil, nil
	}

	if rec.AsksFollowUp() {
		next.State = StateFollowUp
		next.Held = awaitingFollowUp(rec)
		return next, nil, nil
	}

	return m.finalize(next, final(rec))
}

func (m *Machine) finalize(s Session, held *Held) (Session, []Effect, error) {
	next := s
	next.State = StateComplete
	next.Held = held
	next.Inputs = nil
	next.Confirmed = nil
	next.Answers = nil
	next.Recheck = nil
	next.InFlight = ""
	return next, []Effect{PersistRecord{Record: held.Record.Clone()}, RefreshHistory{}}, nil
}

func (m *Machine) confirmExtraction(s Session, e Event) (Session, []Effect, error) {
	ev := e.(ConfirmExtraction)
	pending := s.Pending()
	if pending == nil || s.Held.Kind != HeldAwaitingConfirmation || !pending.HasExtraction() {
		return s, nil, domain.ErrNoExtraction
	}

	data := domain.ConfirmedData{
		Brand:     strings.TrimSpace(ev.Data.Brand),
		Model:     strings.TrimSpace(ev.Data.Model),
		ErrorCode: strings.TrimSpace(ev.Data.ErrorCode),
	}
	req := s.Inputs.request()
	req.Confirmed = &data

	next := s
	next.Confirmed = &data
	next.ChainConfirmed = true
	next.State = StateAnalyzing
	next.InFlight = RoundConfirmation
	return next, []Effect{CallCollaborator{Round: RoundConfirmation, Request: req}}, nil
}

func (m *Machine) submitAnswers(s Session, e Event) (Session, []Effect, error) {
	ev := e.(SubmitAnswers)
	pending := s.Pending()
	if pending == nil {
		return s, nil, fmt.Errorf("%w: nothing awaiting answers", domain.ErrInvalidTransition)
	}
	if missing := ev.Answers.Missing(pending.FollowUpQuestions); len(missing) > 0 {
		return s, nil, fmt.Errorf("%w: %s", domain.ErrIncompleteAnswers, strings.Join(missing, ", "))
	}

	answers := ev.Answers.Clone()
	req := s.Inputs.request()
	if s.Confirmed != nil {
		cd := *s.Confirmed
		req.Confirmed = &cd
	}
	req.Prior = &ai.PriorContext{
		Issue:       pending.Issue,
		Probability: pending.Probability,
		Answers:     answers,
	}

	next := s
	next.Answers = answers
	next.State = StateAnalyzing
	next.InFlight = RoundFollowUp
	return next, []Effect{CallCollaborator{Round: RoundFollowUp, Request: req}}, nil
}

func (m *Machine) skipFollowUp(s Session, _ Event) (Session, []Effect, error) {
	pending := s.Pending()
	if pending == nil {
		return s, nil, fmt.Errorf("%w: nothing awaiting answers", domain.ErrInvalidTransition)
	}
	return m.finalize(s, final(pending.Clone()))
}

func (m *Machine) recordResolution(s Session, e Event) (Session, []Effect, error) {
	ev := e.(RecordResolution)
	if _, err := domain.ParseResolutionStatus(string(ev.Status)); err != nil {
		return s, nil, err
	}
	result := s.Result()
	if result == nil {
		return s, nil, fmt.Errorf("%w: no finalized diagnosis", domain.ErrInvalidTransition)
	}

	rec := result.Clone()
	rec.ResolutionStatus = ev.Status

	next := s
	next.Held = &Held{Kind: s.Held.Kind, Record: rec}
	return next, []Effect{PersistRecord{Record: rec.Clone()}, RefreshHistory{}}, nil
}

func (m *Machine) requestRecheck(s Session, e Event) (Session, []Effect, error) {
	ev := e.(RequestRecheck)
	prior := s.Result()
	if prior == nil {
		return s, nil, fmt.Errorf("%w: no finalized diagnosis", domain.ErrInvalidTransition)
	}

	in := &Inputs{Audio: present(ev.Audio), Image: present(ev.Image)}
	if in.Audio == nil && in.Image == nil {
		return s, nil, domain.ErrEmptySubmission
	}
	if in.Image != nil {
		in.ImageURL = displayURL(ev.ImageURL, in.Image)
	}
	ref := &ai.RecheckContext{PriorID: prior.ID, Issue: prior.Issue, Description: prior.Description}
	req := in.request()
	req.Recheck = ref

	next := s
	next.Inputs = in
	next.Recheck = ref
	next.State = StateRechecking
	next.InFlight = RoundRecheck
	return next, []Effect{CallCollaborator{Round: RoundRecheck, Request: req}}, nil
}

func (m *Machine) openChat(s Session, _ Event) (Session, []Effect, error) {
	result := s.Result()
	if result == nil {
		return s, nil, fmt.Errorf("%w: no finalized diagnosis", domain.ErrInvalidTransition)
	}
	return s, []Effect{StartChat{Record: result.Clone()}}, nil
}

func (m *Machine) loadRecord(s Session, e Event) (Session, []Effect, error) {
	ev := e.(LoadRecord)
	if ev.Record == nil {
		return s, nil, domain.ErrRecordNotFound
	}
	kind := HeldFinal
	if ev.Record.IsRecheck {
		kind = HeldRecheck
	}
	next := cleared(s)
	next.State = StateComplete
	next.Held = &Held{Kind: kind, Record: ev.Record.Clone()}
	return next, nil, nil
}

func (m *Machine) reset(s Session, _ Event) (Session, []Effect, error) {
	next := cleared(s)
	next.State = StateIdle
	return next, nil, nil
}

// cleared keeps only the session identity.
func cleared(s Session) Session {
	return Session{
		ID:        s.ID,
		Owner:     s.Owner,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func present(in *domain.MediaInput) *domain.MediaInput {
	if in == nil || in.IsZero() {
		return nil
	}
	cp := *in
	return &cp
}

func displayURL(url string, img *domain.MediaInput) string {
	if strings.TrimSpace(url) != "" {
		return url
	}
	return img.DataURI()
}
