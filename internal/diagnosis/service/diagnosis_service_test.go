package service

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/ai"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/chat"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/media"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/repository"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/servicecenter"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/session"
)

const owner = "user-1"

type scripted struct {
	d   domain.Diagnosis
	err error
}

type fakeCollaborator struct {
	mu        sync.Mutex
	responses []scripted
	requests  []ai.Request
	started   chan struct{}
	release   chan struct{}
}

func (f *fakeCollaborator) Diagnose(_ context.Context, req ai.Request) (domain.Diagnosis, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	r := scripted{err: errors.New("no scripted response")}
	if len(f.responses) > 0 {
		r = f.responses[0]
		f.responses = f.responses[1:]
	}
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	return r.d, r.err
}

func (f *fakeCollaborator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeCollaborator) request(i int) ai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

type fakeStreamer struct{ reply string }

func (f fakeStreamer) Stream(context.Context, []domain.ChatMessage, string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield(f.reply, nil)
	}
}

type fakeImages struct {
	url string
	err error
}

func (f fakeImages) Save(context.Context, string, domain.MediaInput) (string, error) {
	return f.url, f.err
}

type failingHistory struct{}

func (failingHistory) Put(context.Context, string, *domain.DiagnosisResult) error {
	return errors.New("quota exceeded")
}

func (failingHistory) GetAll(context.Context, string) ([]*domain.DiagnosisResult, error) {
	return nil, errors.New("storage unavailable")
}

func (failingHistory) Clear(context.Context, string) error {
	return errors.New("storage unavailable")
}

type fakeSearcher struct{}

func (fakeSearcher) SearchServiceCenters(context.Context, string, float64, float64) (string, error) {
	return "강남 서비스센터", nil
}

func finalDiagnosis() domain.Diagnosis {
	return domain.Diagnosis{
		Appliance:   "에어컨",
		Issue:       "열팽창 소음",
		Probability: 85,
		Steps: []domain.RepairStep{
			{Ordinal: 1, Instruction: "운전 모드 확인"},
			{Ordinal: 2, Instruction: "설치 상태 확인"},
		},
		SafetyLevel: domain.SafetyLow,
		Evidence:    []domain.Evidence{{Source: domain.EvidenceGeneral, Title: "소음", Snippet: "틱틱"}},
	}
}

func triageDiagnosis() domain.Diagnosis {
	d := finalDiagnosis()
	d.Probability = 40
	d.NeedsFollowUp = true
	d.FollowUpQuestions = []domain.FollowUpQuestion{
		{ID: "q1", Prompt: "언제 소리가 나나요?", Kind: domain.QuestionSingle, Options: []string{"켤 때", "끌 때"}},
	}
	return d
}

func extractionDiagnosis() domain.Diagnosis {
	d := finalDiagnosis()
	d.Appliance = "세탁기"
	d.DetectedModel = "WW10N645"
	return d
}

var photo = &domain.MediaInput{Data: "aW1hZ2U=", MediaType: "image/jpeg"}

type fixture struct {
	svc    *DiagnosisService
	collab *fakeCollaborator
	store  repository.HistoryStore
}

func newFixture(t *testing.T, responses ...scripted) *fixture {
	t.Helper()
	return newFixtureWith(t, repository.NewMemoryHistoryStore(), fakeImages{url: "https://images.test/u1/a.jpg"}, responses...)
}

func newFixtureWith(t *testing.T, store repository.HistoryStore, images fakeImages, responses ...scripted) *fixture {
	t.Helper()
	collab := &fakeCollaborator{responses: responses}
	svc := NewDiagnosisService(Deps{
		Sessions:     repository.NewMemorySessionStore(64, time.Hour),
		History:      store,
		Collaborator: collab,
		Chats:        chat.NewRegistry(fakeStreamer{reply: "전원을 먼저 끄세요."}),
		Images:       images,
		Finder:       servicecenter.NewFinder(fakeSearcher{}, 8, time.Minute, nil),
		Normalizer:   media.NewNormalizer(3*time.Second, 0),
	})
	return &fixture{svc: svc, collab: collab, store: store}
}

func (f *fixture) newSession(t *testing.T) string {
	t.Helper()
	sess, err := f.svc.CreateSession(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, session.StateIdle, sess.State)
	return sess.ID
}

func TestSubmitTextCompletesAndPersists(t *testing.T) {
	f := newFixture(t, scripted{d: finalDiagnosis()})
	ctx := context.Background()
	id := f.newSession(t)

	out, err := f.svc.Submit(ctx, owner, id, SubmitInput{Text: "에어컨에서 틱틱 소리가 나요"})
	require.NoError(t, err)

	assert.Equal(t, session.StateComplete, out.Session.State)
	require.NotNil(t, out.Session.Result())
	require.Len(t, out.History, 1)
	assert.Equal(t, out.Session.Result().ID, out.History[0].ID)
	assert.Equal(t, 1, f.collab.calls())
	assert.Equal(t, "에어컨에서 틱틱 소리가 나요", f.collab.request(0).Text)

	stored, err := f.svc.GetSession(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, session.StateComplete, stored.State)

	m := f.svc.Metrics()
	assert.Equal(t, int64(1), m.Rounds)
	assert.Equal(t, int64(1), m.Finalized)
	assert.Equal(t, int64(1), m.SessionsCreated)
}

func TestImageConfirmationFlow(t *testing.T) {
	f := newFixture(t, scripted{d: extractionDiagnosis()}, scripted{d: extractionDiagnosis()})
	ctx := context.Background()
	id := f.newSession(t)

	out, err := f.svc.Submit(ctx, owner, id, SubmitInput{Image: photo})
	require.NoError(t, err)
	assert.Equal(t, session.StateConfirmExtraction, out.Session.State)
	assert.Nil(t, out.History)
	assert.Empty(t, f.svc.History(ctx, owner))

	confirmed := domain.ConfirmedData{Brand: "삼성전자", Model: "WW10N645"}
	out, err = f.svc.ConfirmExtraction(ctx, owner, id, confirmed)
	require.NoError(t, err)
	assert.Equal(t, session.StateComplete, out.Session.State)

	require.Len(t, out.History, 1)
	rec := out.History[0]
	assert.Equal(t, &confirmed, rec.UserConfirmedData)
	assert.Equal(t, "https://images.test/u1/a.jpg", rec.ImageURL)

	second := f.collab.request(1)
	assert.Equal(t, &confirmed, second.Confirmed)
	assert.True(t, second.HasImage())
}

func TestImageUploadFailureFallsBackToDataURI(t *testing.T) {
	f := newFixtureWith(t, repository.NewMemoryHistoryStore(), fakeImages{err: errors.New("bucket down")}, scripted{d: finalDiagnosis()})
	ctx := context.Background()
	id := f.newSession(t)

	out, err := f.svc.Submit(ctx, owner, id, SubmitInput{Image: photo})
	require.NoError(t, err)
	require.Len(t, out.History, 1)
	assert.Equal(t, photo.DataURI(), out.History[0].ImageURL)
}

func TestRoundFailureIsSessionState(t *testing.T) {
	f := newFixture(t, scripted{err: domain.ErrEmptyResponse})
	ctx := context.Background()
	id := f.newSession(t)

	out, err := f.svc.Submit(ctx, owner, id, SubmitInput{Text: "냉장고가 안 차가워요"})
	require.NoError(t, err)
	assert.Equal(t, session.StateError, out.Session.State)
	assert.NotEmpty(t, out.Session.LastError)
	assert.Empty(t, f.svc.History(ctx, owner))

	_, err = f.svc.Submit(ctx, owner, id, SubmitInput{Text: "다시"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	out, err = f.svc.Reset(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, session.StateIdle, out.Session.State)
	assert.Nil(t, out.Session.Inputs)
	assert.Equal(t, int64(1), f.svc.Metrics().RoundFailures)
}

// slowCollaborator answers after a delay unless its context ends first.
type slowCollaborator struct {
	delay       time.Duration
	hadDeadline bool
}

func (c *slowCollaborator) Diagnose(ctx context.Context, _ ai.Request) (domain.Diagnosis, error) {
	_, c.hadDeadline = ctx.Deadline()
	select {
	case <-time.After(c.delay):
		return finalDiagnosis(), nil
	case <-ctx.Done():
		return domain.Diagnosis{}, ctx.Err()
	}
}

func TestSlowRoundStillCompletes(t *testing.T) {
	collab := &slowCollaborator{delay: 200 * time.Millisecond}
	svc := NewDiagnosisService(Deps{
		Sessions:     repository.NewMemorySessionStore(8, time.Hour),
		History:      repository.NewMemoryHistoryStore(),
		Collaborator: collab,
		Chats:        chat.NewRegistry(fakeStreamer{}),
	})
	sess, err := svc.CreateSession(context.Background(), owner)
	require.NoError(t, err)

	// the round outlives the caller's context
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out, err := svc.Submit(ctx, owner, sess.ID, SubmitInput{Text: "소리가 나요"})
	require.NoError(t, err)
	assert.Equal(t, session.StateComplete, out.Session.State)
	assert.Empty(t, out.Session.LastError)
	assert.False(t, collab.hadDeadline)
	assert.Len(t, out.History, 1)
}

func TestHistoryFailureDoesNotBlockCompletion(t *testing.T) {
	f := newFixtureWith(t, failingHistory{}, fakeImages{}, scripted{d: finalDiagnosis()})
	ctx := context.Background()
	id := f.newSession(t)

	out, err := f.svc.Submit(ctx, owner, id, SubmitInput{Text: "소리가 나요"})
	require.NoError(t, err)
	assert.Equal(t, session.StateComplete, out.Session.State)
	assert.NotNil(t, out.History)
	assert.Empty(t, out.History)

	f.svc.ClearHistory(ctx, owner)
	assert.Equal(t, int64(3), f.svc.Metrics().HistoryFailures)
}

func TestTooShortRecording(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.newSession(t)

	_, err := f.svc.SelectInput(ctx, owner, id, domain.InputAudio)
	require.NoError(t, err)

	audio := &domain.MediaInput{Data: "YXVkaW8=", MediaType: "audio/webm"}
	out, err := f.svc.Submit(ctx, owner, id, SubmitInput{Audio: audio, AudioDuration: time.Second})
	require.NoError(t, err)
	assert.Equal(t, session.StateTooShort, out.Session.State)
	assert.Equal(t, media.TooShortNotice, out.Session.Notice)
	assert.Equal(t, domain.InputAudio, out.Session.Mode)
	assert.Equal(t, 0, f.collab.calls())
}

func TestEventWhileRoundInFlightIsBusy(t *testing.T) {
	f := newFixture(t, scripted{d: finalDiagnosis()})
	f.collab.started = make(chan struct{})
	f.collab.release = make(chan struct{})
	ctx := context.Background()
	id := f.newSession(t)

	done := make(chan *Outcome, 1)
	go func() {
		out, err := f.svc.Submit(ctx, owner, id, SubmitInput{Text: "소리가 나요"})
		assert.NoError(t, err)
		done <- out
	}()

	<-f.collab.started
	sess, err := f.svc.GetSession(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, session.StateAnalyzing, sess.State)

	_, err = f.svc.Submit(ctx, owner, id, SubmitInput{Text: "또"})
	assert.ErrorIs(t, err, domain.ErrSessionBusy)
	_, err = f.svc.Reset(ctx, owner, id)
	assert.ErrorIs(t, err, domain.ErrSessionBusy)

	close(f.collab.release)
	select {
	case out := <-done:
		assert.Equal(t, session.StateComplete, out.Session.State)
	case <-time.After(2 * time.Second):
		t.Fatal("round did not finish")
	}
}

func TestSessionsAreOwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.newSession(t)

	_, err := f.svc.GetSession(ctx, "someone-else", id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = f.svc.Reset(ctx, "someone-else", id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = f.svc.GetSession(ctx, owner, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestListSessions(t *testing.T) {
	f := newFixture(t, scripted{d: finalDiagnosis()})
	ctx := context.Background()
	first := f.newSession(t)
	second := f.newSession(t)
	_, err := f.svc.CreateSession(ctx, "someone-else")
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, owner, first, SubmitInput{Text: "소리"})
	require.NoError(t, err)

	list, err := f.svc.ListSessions(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []string{first, second}, []string{list[0].ID, list[1].ID})
	assert.False(t, list[0].UpdatedAt.Before(list[1].UpdatedAt))

	list, err = f.svc.ListSessions(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t, scripted{d: finalDiagnosis()})
	ctx := context.Background()
	id := f.newSession(t)

	_, err := f.svc.Submit(ctx, owner, id, SubmitInput{Text: "소리"})
	require.NoError(t, err)
	_, err = f.svc.OpenChat(ctx, owner, id)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteSession(ctx, "someone-else", id), domain.ErrSessionNotFound)
	require.NoError(t, f.svc.DeleteSession(ctx, owner, id))

	_, err = f.svc.GetSession(ctx, owner, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, 0, f.svc.chats.Len())
	list, err := f.svc.ListSessions(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, list)

	// the finalized record outlives the session
	assert.Len(t, f.svc.History(ctx, owner), 1)
	assert.ErrorIs(t, f.svc.DeleteSession(ctx, owner, id), domain.ErrSessionNotFound)
}

func TestFollowUpAnswersAndSkip(t *testing.T) {
	f := newFixture(t, scripted{d: triageDiagnosis()}, scripted{d: finalDiagnosis()}, scripted{d: triageDiagnosis()})
	ctx := context.Background()
	id := f.newSession(t)

	out, err := f.svc.Submit(ctx, owner, id, SubmitInput{Text: "덜컹 소리"})
	require.NoError(t, err)
	assert.Equal(t, session.StateFollowUp, out.Session.State)

	_, err = f.svc.SubmitAnswers(ctx, owner, id, domain.Answers{})
	assert.ErrorIs(t, err, domain.ErrIncompleteAnswers)

	out, err = f.svc.SubmitAnswers(ctx, owner, id, domain.Answers{"q1": domain.SingleAnswer("켤 때")})
	require.NoError(t, err)
	assert.Equal(t, session.StateComplete, out.Session.State)
	assert.Equal(t, "켤 때", out.Session.Result().UserAnswers["q1"].Value)
	require.NotNil(t, f.collab.request(1).Prior)
	assert.Equal(t, float64(40), f.collab.request(1).Prior.Probability)

	// skip finalizes the pending diagnosis without another round
	_, err = f.svc.Reset(ctx, owner, id)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, owner, id, SubmitInput{Text: "또 덜컹"})
	require.NoError(t, err)
	out, err = f.svc.SkipFollowUp(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, session.StateComplete, out.Session.State)
	assert.Equal(t, 3, f.collab.calls())
	assert.Len(t, out.History, 2)
}

func TestResolutionUpdatesRecordInPlace(t *testing.T) {
	f := newFixture(t, scripted{d: finalDiagnosis()})
	ctx := context.Background()
	id := f.newSession(t)

	out, err := f.svc.Submit(ctx, owner, id, SubmitInput{Text: "소리"})
	require.NoError(t, err)
	recID := out.Session.Result().ID

	out, err = f.svc.RecordResolution(ctx, owner, id, domain.ResolutionSolved)
	require.NoError(t, err)
	require.Len(t, out.History, 1)
	assert.Equal(t, recID, out.History[0].ID)
	assert.Equal(t, domain.ResolutionSolved, out.History[0].ResolutionStatus)
	assert.Equal(t, int64(1), f.svc.Metrics().Finalized)

	_, err = f.svc.RecordResolution(ctx, owner, id, "MAYBE")
	assert.Error(t, err)
}

func TestRecheckCreatesLinkedRecord(t *testing.T) {
	after := triageDiagnosis()
	after.BeforeAfterNote = "소음이 줄었습니다"
	f := newFixture(t, scripted{d: finalDiagnosis()}, scripted{d: after})
	ctx := context.Background()
	id := f.newSession(t)

	out, err := f.svc.Submit(ctx, owner, id, SubmitInput{Text: "소리"})
	require.NoError(t, err)
	priorID := out.Session.Result().ID

	audio := &domain.MediaInput{Data: "YXVkaW8=", MediaType: "audio/webm"}
	_, err = f.svc.Recheck(ctx, owner, id, RecheckInput{Audio: audio, AudioDuration: time.Second})
	assert.ErrorIs(t, err, domain.ErrRecordingTooShort)

	out, err = f.svc.Recheck(ctx, owner, id, RecheckInput{Audio: audio, AudioDuration: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, session.StateComplete, out.Session.State)

	rec := out.Session.Result()
	assert.True(t, rec.IsRecheck)
	assert.Equal(t, priorID, rec.FollowUpSessionID)
	assert.NotEqual(t, priorID, rec.ID)
	assert.False(t, rec.NeedsFollowUp)
	assert.Len(t, out.History, 2)

	req := f.collab.request(1)
	require.NotNil(t, req.Recheck)
	assert.Equal(t, priorID, req.Recheck.PriorID)
	assert.Equal(t, int64(1), f.svc.Metrics().Rechecks)
}

func TestLoadFromHistoryNeverCallsCollaborator(t *testing.T) {
	f := newFixture(t, scripted{d: finalDiagnosis()})
	ctx := context.Background()
	first := f.newSession(t)

	out, err := f.svc.Submit(ctx, owner, first, SubmitInput{Text: "소리"})
	require.NoError(t, err)
	rec := out.Session.Result()

	second := f.newSession(t)
	out, err = f.svc.LoadFromHistory(ctx, owner, second, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateComplete, out.Session.State)
	assert.Equal(t, rec.ID, out.Session.Result().ID)
	assert.Equal(t, rec.Timestamp, out.Session.Result().Timestamp)
	assert.Equal(t, 1, f.collab.calls())
	assert.Len(t, f.svc.History(ctx, owner), 1)

	_, err = f.svc.LoadFromHistory(ctx, owner, second, "nope")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestChatLifecycle(t *testing.T) {
	f := newFixture(t, scripted{d: finalDiagnosis()})
	ctx := context.Background()
	id := f.newSession(t)

	_, err := f.svc.OpenChat(ctx, owner, id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Submit(ctx, owner, id, SubmitInput{Text: "소리"})
	require.NoError(t, err)

	out, err := f.svc.OpenChat(ctx, owner, id)
	require.NoError(t, err)
	require.Len(t, out.Chat, 1)
	assert.Equal(t, domain.RoleModel, out.Chat[0].Role)

	var fragments []string
	reply, err := f.svc.SendChat(ctx, owner, id, "얼마나 걸리나요?", func(s string) { fragments = append(fragments, s) })
	require.NoError(t, err)
	assert.Equal(t, "전원을 먼저 끄세요.", reply.Text)
	assert.Equal(t, []string{"전원을 먼저 끄세요."}, fragments)

	msgs, err := f.svc.ChatMessages(ctx, owner, id)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)

	// the session is unaffected by chat
	sess, err := f.svc.GetSession(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, session.StateComplete, sess.State)

	_, err = f.svc.Reset(ctx, owner, id)
	require.NoError(t, err)
	_, err = f.svc.ChatMessages(ctx, owner, id)
	assert.ErrorIs(t, err, domain.ErrChatNotOpen)
}

func TestCloseChat(t *testing.T) {
	f := newFixture(t, scripted{d: finalDiagnosis()})
	ctx := context.Background()
	id := f.newSession(t)

	_, err := f.svc.Submit(ctx, owner, id, SubmitInput{Text: "소리"})
	require.NoError(t, err)
	_, err = f.svc.OpenChat(ctx, owner, id)
	require.NoError(t, err)

	require.NoError(t, f.svc.CloseChat(ctx, owner, id))
	_, err = f.svc.SendChat(ctx, owner, id, "질문", nil)
	assert.ErrorIs(t, err, domain.ErrChatNotOpen)

	sess, err := f.svc.GetSession(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, session.StateComplete, sess.State)
}

func TestChatOnMovedRecordIsClosed(t *testing.T) {
	f := newFixture(t, scripted{d: finalDiagnosis()})
	ctx := context.Background()
	id := f.newSession(t)

	_, err := f.svc.Submit(ctx, owner, id, SubmitInput{Text: "소리"})
	require.NoError(t, err)
	_, err = f.svc.OpenChat(ctx, owner, id)
	require.NoError(t, err)

	// a write from elsewhere that bypasses this registry
	sess, err := f.svc.GetSession(ctx, owner, id)
	require.NoError(t, err)
	moved := sess.Result().Clone()
	moved.ID = "elsewhere"
	sess.Held = &session.Held{Kind: sess.Held.Kind, Record: moved}
	require.NoError(t, f.svc.sessions.Put(ctx, sess))

	_, err = f.svc.SendChat(ctx, owner, id, "질문", nil)
	assert.ErrorIs(t, err, domain.ErrChatNotOpen)
	assert.Equal(t, 0, f.svc.chats.Len())
}

func TestClearHistory(t *testing.T) {
	f := newFixture(t, scripted{d: finalDiagnosis()})
	ctx := context.Background()
	id := f.newSession(t)

	_, err := f.svc.Submit(ctx, owner, id, SubmitInput{Text: "소리"})
	require.NoError(t, err)
	require.Len(t, f.svc.History(ctx, owner), 1)

	f.svc.ClearHistory(ctx, owner)
	assert.Empty(t, f.svc.History(ctx, owner))

	// clearing history leaves the session alone
	sess, err := f.svc.GetSession(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, session.StateComplete, sess.State)
}

func TestFindServiceCenters(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "강남 서비스센터", f.svc.FindServiceCenters(context.Background(), "세탁기", "삼성", 37.5, 127.0))

	bare := NewDiagnosisService(Deps{
		Sessions:     repository.NewMemorySessionStore(1, time.Hour),
		History:      repository.NewMemoryHistoryStore(),
		Collaborator: &fakeCollaborator{},
		Chats:        chat.NewRegistry(fakeStreamer{}),
	})
	assert.Equal(t, servicecenter.UnavailableText, bare.FindServiceCenters(context.Background(), "세탁기", "", 0, 0))
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	assert.Equal(t, 1, k.size())

	acquired := make(chan struct{})
	go func() {
		u := k.Lock("a")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first was held")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	<-acquired

	assert.Eventually(t, func() bool { return k.size() == 0 }, time.Second, 5*time.Millisecond)
}
