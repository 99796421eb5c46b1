// Package service runs diagnosis sessions: it applies events through the
// state machine, persists sessions and executes the resulting effects.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/ai"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/chat"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/imagestore"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/media"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/repository"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/servicecenter"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/session"
	"github.com/fixitnow/fixitnow-backend/internal/logging"
)

type Deps struct {
	Sessions     repository.SessionStore
	History      repository.HistoryStore
	Collaborator ai.Collaborator
	Chats        *chat.Registry

	// Optional.
	Images     imagestore.Store
	Finder     *servicecenter.Finder
	Normalizer *media.Normalizer
	Machine    *session.Machine
	Logger     *zap.Logger
	Metrics    *Metrics
}

// DiagnosisService handles business logic for diagnosis sessions
type DiagnosisService struct {
	machine      *session.Machine
	sessions     repository.SessionStore
	history      *History
	collaborator ai.Collaborator
	images       imagestore.Store
	chats        *chat.Registry
	finder       *servicecenter.Finder
	normalizer   *media.Normalizer
	log          *zap.Logger
	metrics      *Metrics
	locks        *keyedMutex
	now          func() time.Time
}

// NewDiagnosisService creates a new DiagnosisService
func NewDiagnosisService(d Deps) *DiagnosisService {
	if d.Images == nil {
		d.Images = imagestore.DataURIStore{}
	}
	if d.Normalizer == nil {
		d.Normalizer = media.NewNormalizer(0, 0)
	}
	if d.Machine == nil {
		d.Machine = session.NewMachine()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics()
	}
	return &DiagnosisService{
		machine:      d.Machine,
		sessions:     d.Sessions,
		history:      NewHistory(d.History, d.Logger, d.Metrics),
		collaborator: d.Collaborator,
		images:       d.Images,
		chats:        d.Chats,
		finder:       d.Finder,
		normalizer:   d.Normalizer,
		log:          d.Logger,
		metrics:      d.Metrics,
		locks:        newKeyedMutex(),
		now:          time.Now,
	}
}

// Outcome is the session after an operation together with what its
// effects produced.
type Outcome struct {
	Session session.Session
	// History is set when the operation refreshed the history list.
	History []*domain.DiagnosisResult
	// Chat is set when the operation opened a chat.
	Chat []domain.ChatMessage
}

// SubmitInput is one user submission. AudioDuration is the client-reported
// recording length; zero means unknown.
type SubmitInput struct {
	Audio         *domain.MediaInput
	AudioDuration time.Duration
	Image         *domain.MediaInput
	Text          string
}

type RecheckInput struct {
	Audio         *domain.MediaInput
	AudioDuration time.Duration
	Image         *domain.MediaInput
}

// CreateSession creates an idle session for owner
func (s *DiagnosisService) CreateSession(ctx context.Context, owner string) (session.Session, error) {
	sess := session.New(uuid.NewString(), owner, s.now())
	if err := s.sessions.Put(ctx, sess); err != nil {
		return session.Session{}, fmt.Errorf("save session: %w", err)
	}
	s.metrics.recordSession()
	return sess, nil
}

// GetSession retrieves a session owned by owner
func (s *DiagnosisService) GetSession(ctx context.Context, owner, id string) (session.Session, error) {
	return s.load(ctx, owner, id)
}

// ListSessions returns the owner's live sessions, most recently updated
// first. Index entries whose session has expired are skipped.
func (s *DiagnosisService) ListSessions(ctx context.Context, owner string) ([]session.Session, error) {
	ids, err := s.sessions.ListIDs(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]session.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.load(ctx, owner, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// DeleteSession drops the session and closes its chat. A round still in
// flight fails to save its outcome and is discarded.
func (s *DiagnosisService) DeleteSession(ctx context.Context, owner, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.load(ctx, owner, id); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.chats.Close(id)
	return nil
}

func (s *DiagnosisService) SelectInput(ctx context.Context, owner, id string, mode domain.InputMode) (*Outcome, error) {
	return s.dispatch(ctx, owner, id, fixed(session.SelectInput{Mode: mode}))
}

// Submit starts a diagnosis chain. A recording shorter than the minimum
// moves the session to too-short instead of calling the collaborator.
func (s *DiagnosisService) Submit(ctx context.Context, owner, id string, in SubmitInput) (*Outcome, error) {
	return s.dispatch(ctx, owner, id, func(cur session.Session) (session.Event, error) {
		if in.Audio != nil {
			if err := s.normalizer.CheckDuration(in.AudioDuration); err != nil {
				return session.RejectInput{Notice: media.TooShortNotice}, nil
			}
		}
		ev := session.Submit{Audio: in.Audio, Image: in.Image, Text: in.Text}
		if s.machine.Accepts(cur.State, session.EventSubmit) {
			ev.ImageURL = s.storeImage(ctx, owner, in.Image)
		}
		return ev, nil
	})
}

func (s *DiagnosisService) ConfirmExtraction(ctx context.Context, owner, id string, data domain.ConfirmedData) (*Outcome, error) {
	return s.dispatch(ctx, owner, id, fixed(session.ConfirmExtraction{Data: data}))
}

func (s *DiagnosisService) CancelConfirmation(ctx context.Context, owner, id string) (*Outcome, error) {
	return s.dispatch(ctx, owner, id, fixed(session.CancelConfirmation{}))
}

func (s *DiagnosisService) SubmitAnswers(ctx context.Context, owner, id string, answers domain.Answers) (*Outcome, error) {
	return s.dispatch(ctx, owner, id, fixed(session.SubmitAnswers{Answers: answers}))
}

func (s *DiagnosisService) SkipFollowUp(ctx context.Context, owner, id string) (*Outcome, error) {
	return s.dispatch(ctx, owner, id, fixed(session.SkipFollowUp{}))
}

func (s *DiagnosisService) RecordResolution(ctx context.Context, owner, id string, status domain.ResolutionStatus) (*Outcome, error) {
	return s.dispatch(ctx, owner, id, fixed(session.RecordResolution{Status: status}))
}

// Recheck diagnoses the appliance again after a repair attempt, referencing
// the session's finalized result.
func (s *DiagnosisService) Recheck(ctx context.Context, owner, id string, in RecheckInput) (*Outcome, error) {
	if in.Audio != nil {
		if err := s.normalizer.CheckDuration(in.AudioDuration); err != nil {
			return nil, err
		}
	}
	return s.dispatch(ctx, owner, id, func(cur session.Session) (session.Event, error) {
		ev := session.RequestRecheck{Audio: in.Audio, Image: in.Image}
		if s.machine.Accepts(cur.State, session.EventRequestRecheck) {
			ev.ImageURL = s.storeImage(ctx, owner, in.Image)
		}
		return ev, nil
	})
}

// LoadFromHistory shows a stored record in the session without calling the
// collaborator.
func (s *DiagnosisService) LoadFromHistory(ctx context.Context, owner, id, recordID string) (*Outcome, error) {
	if _, err := s.load(ctx, owner, id); err != nil {
		return nil, err
	}
	rec, err := s.history.Find(ctx, owner, recordID)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, owner, id, fixed(session.LoadRecord{Record: rec}))
}

func (s *DiagnosisService) Reset(ctx context.Context, owner, id string) (*Outcome, error) {
	return s.dispatch(ctx, owner, id, fixed(session.Reset{}))
}

// OpenChat starts the follow-up conversation on the session's result.
func (s *DiagnosisService) OpenChat(ctx context.Context, owner, id string) (*Outcome, error) {
	return s.dispatch(ctx, owner, id, fixed(session.OpenChat{}))
}

// SendChat streams a reply, calling onFragment as text arrives. A failed
// round still returns the apology reply.
func (s *DiagnosisService) SendChat(ctx context.Context, owner, id, text string, onFragment func(string)) (domain.ChatMessage, error) {
	ch, err := s.channel(ctx, owner, id)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return ch.Send(ctx, text, onFragment)
}

func (s *DiagnosisService) ChatMessages(ctx context.Context, owner, id string) ([]domain.ChatMessage, error) {
	ch, err := s.channel(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return ch.Messages(), nil
}

// CloseChat stops any in-flight reply. The session is untouched.
func (s *DiagnosisService) CloseChat(ctx context.Context, owner, id string) error {
	if _, err := s.load(ctx, owner, id); err != nil {
		return err
	}
	s.chats.Close(id)
	return nil
}

func (s *DiagnosisService) History(ctx context.Context, owner string) []*domain.DiagnosisResult {
	return s.history.List(ctx, owner)
}

func (s *DiagnosisService) ClearHistory(ctx context.Context, owner string) {
	s.history.Clear(ctx, owner)
}

// FindServiceCenters never fails; an unavailable lookup yields the fallback text.
func (s *DiagnosisService) FindServiceCenters(ctx context.Context, appliance, brand string, lat, lng float64) string {
	if s.finder == nil {
		return servicecenter.UnavailableText
	}
	return s.finder.Find(ctx, appliance, brand, lat, lng)
}

func (s *DiagnosisService) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}

type eventBuilder func(cur session.Session) (session.Event, error)

func fixed(ev session.Event) eventBuilder {
	return func(session.Session) (session.Event, error) { return ev, nil }
}

// dispatch applies one user event and then runs its effects. Effects run
// outside the session lock, so a concurrent event sees the busy state.
func (s *DiagnosisService) dispatch(ctx context.Context, owner, id string, build eventBuilder) (*Outcome, error) {
	next, effects, err := s.transition(ctx, owner, id, build)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Session: next}
	if err := s.run(context.WithoutCancel(ctx), owner, out, effects); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DiagnosisService) transition(ctx context.Context, owner, id string, build eventBuilder) (session.Session, []session.Effect, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	cur, err := s.load(ctx, owner, id)
	if err != nil {
		return session.Session{}, nil, err
	}
	ev, err := build(cur)
	if err != nil {
		return session.Session{}, nil, err
	}
	next, effects, err := s.machine.Apply(cur, ev)
	if err != nil {
		return session.Session{}, nil, err
	}
	if err := s.sessions.Put(ctx, next); err != nil {
		return session.Session{}, nil, fmt.Errorf("save session: %w", err)
	}

	// a chat belongs to the record it was opened on
	if resultID(cur) != resultID(next) {
		s.chats.Close(id)
	}
	return next, effects, nil
}

// run executes effects in order. A collaborator round feeds its outcome
// back through the machine, which may queue further effects.
func (s *DiagnosisService) run(ctx context.Context, owner string, out *Outcome, effects []session.Effect) error {
	queue := append([]session.Effect(nil), effects...)
	for len(queue) > 0 {
		eff := queue[0]
		queue = queue[1:]

		switch e := eff.(type) {
		case session.CallCollaborator:
			ev := s.round(ctx, e)
			next, more, err := s.transition(ctx, owner, out.Session.ID, fixed(ev))
			if err != nil {
				return err
			}
			out.Session = next
			queue = append(queue, more...)
		case session.PersistRecord:
			s.history.Save(ctx, owner, e.Record)
			if out.Session.State == session.StateComplete && e.Record.ResolutionStatus == "" {
				s.metrics.recordFinalized(e.Record.IsRecheck)
			}
		case session.RefreshHistory:
			out.History = s.history.List(ctx, owner)
		case session.StartChat:
			out.Chat = s.chats.Open(out.Session.ID, e.Record).Messages()
		default:
			return fmt.Errorf("unknown effect %T", eff)
		}
	}
	return nil
}

func (s *DiagnosisService) round(ctx context.Context, call session.CallCollaborator) session.Event {
	log := logging.FromContext(ctx, s.log).With(zap.String("round", string(call.Round)))
	start := time.Now()
	d, err := s.collaborator.Diagnose(ctx, call.Request)
	s.metrics.recordRound(err)
	if err != nil {
		log.Warn("diagnosis round failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return session.RoundFailed{Err: err}
	}
	log.Info("diagnosis round finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("issue", d.Issue),
		zap.Bool("needs_follow_up", d.NeedsFollowUp))
	return session.RoundSucceeded{Diagnosis: d}
}

// storeImage returns the display URL for img. An upload failure falls back
// to the inline data URI.
func (s *DiagnosisService) storeImage(ctx context.Context, owner string, img *domain.MediaInput) string {
	if img == nil || img.IsZero() {
		return ""
	}
	url, err := s.images.Save(ctx, owner, *img)
	if err != nil {
		logging.FromContext(ctx, s.log).Warn("image upload failed, using data URI", zap.Error(err))
		return ""
	}
	return url
}

func (s *DiagnosisService) load(ctx context.Context, owner, id string) (session.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return session.Session{}, err
	}
	if sess.Owner != owner {
		return session.Session{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *DiagnosisService) channel(ctx context.Context, owner, id string) (*chat.Channel, error) {
	sess, err := s.load(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	ch, err := s.chats.Get(id)
	if err != nil {
		return nil, err
	}
	// another instance may have moved the session to a new record
	if ch.RecordID() != resultID(sess) {
		s.chats.Close(id)
		return nil, domain.ErrChatNotOpen
	}
	return ch, nil
}

func resultID(s session.Session) string {
	if r := s.Result(); r != nil {
		return r.ID
	}
	return ""
}
