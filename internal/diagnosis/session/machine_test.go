package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testMachine() *Machine {
	n := 0
	clock := baseTime
	return NewMachine(
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("diag-%d", n)
		}),
	)
}

func finalDiagnosis() domain.Diagnosis {
	return domain.Diagnosis{
		Appliance:       "에어컨",
		Issue:           "열팽창 소음",
		Probability:     85,
		Description:     "온도 변화로 인한 소음",
		ManualReference: "매뉴얼 소음 항목",
		Steps: []domain.RepairStep{
			{Ordinal: 1, Instruction: "운전 모드 확인"},
			{Ordinal: 2, Instruction: "설치 상태 확인"},
			{Ordinal: 3, Instruction: "관찰"},
		},
		SafetyLevel:    domain.SafetyLow,
		SafetyWarnings: []string{},
		Evidence:       []domain.Evidence{{Source: domain.EvidenceManual, Title: "소음", Snippet: "틱틱"}},
	}
}

func triageDiagnosis() domain.Diagnosis {
	d := finalDiagnosis()
	d.Probability = 45
	d.NeedsFollowUp = true
	d.FollowUpQuestions = []domain.FollowUpQuestion{
		{ID: "q1", Prompt: "언제 소리가 나나요?", Kind: domain.QuestionSingle, Options: []string{"켤 때", "끌 때"}},
		{ID: "q2", Prompt: "추가 증상은?", Kind: domain.QuestionText},
	}
	return d
}

func extractionDiagnosis() domain.Diagnosis {
	d := finalDiagnosis()
	d.Appliance = "세탁기"
	d.DetectedModel = "WW10N645"
	return d
}

var image = &domain.MediaInput{Data: "aW1hZ2U=", MediaType: "image/jpeg"}

// step applies an event and fails the test on error.
func step(t *testing.T, m *Machine, s Session, e Event) (Session, []Effect) {
	t.Helper()
	next, effects, err := m.Apply(s, e)
	require.NoError(t, err)
	return next, effects
}

func countPersists(effects []Effect) int {
	n := 0
	for _, e := range effects {
		if _, ok := e.(PersistRecord); ok {
			n++
		}
	}
	return n
}

func collaboratorCall(t *testing.T, effects []Effect) CallCollaborator {
	t.Helper()
	require.Len(t, effects, 1)
	call, ok := effects[0].(CallCollaborator)
	require.True(t, ok, "expected CallCollaborator, got %T", effects[0])
	return call
}

func TestTextOnlyDiagnosisCompletesInOneRound(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, effects := step(t, m, s, Submit{Text: "에어컨에서 틱틱 소리가 나요"})
	assert.Equal(t, StateAnalyzing, s.State)
	call := collaboratorCall(t, effects)
	assert.Equal(t, RoundInitial, call.Round)
	assert.Equal(t, "에어컨에서 틱틱 소리가 나요", call.Request.Text)

	s, effects = step(t, m, s, RoundSucceeded{Diagnosis: finalDiagnosis()})
	assert.Equal(t, StateComplete, s.State)
	require.Len(t, effects, 2)
	assert.Equal(t, 1, countPersists(effects))
	assert.IsType(t, RefreshHistory{}, effects[1])

	result := s.Result()
	require.NotNil(t, result)
	assert.Equal(t, "diag-1", result.ID)
	assert.Equal(t, HeldFinal, s.Held.Kind)
	assert.Empty(t, result.ImageURL)
	assert.Nil(t, s.Inputs)

	persisted := effects[0].(PersistRecord).Record
	assert.Equal(t, result, persisted)
	assert.NotSame(t, result, persisted)
}

func TestImageExtractionConfirmsOnce(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, _ = step(t, m, s, Submit{Image: image})
	s, effects := step(t, m, s, RoundSucceeded{Diagnosis: extractionDiagnosis()})
	assert.Equal(t, StateConfirmExtraction, s.State)
	assert.Empty(t, effects)
	require.NotNil(t, s.Pending())
	assert.Equal(t, HeldAwaitingConfirmation, s.Held.Kind)
	assert.Equal(t, image.DataURI(), s.Pending().ImageURL)
	chainID := s.Pending().ID

	confirmed := domain.ConfirmedData{Brand: "삼성전자", Model: "WW10N645", ErrorCode: ""}
	s, effects = step(t, m, s, ConfirmExtraction{Data: confirmed})
	call := collaboratorCall(t, effects)
	assert.Equal(t, RoundConfirmation, call.Round)
	assert.Equal(t, image, call.Request.Image, "original image is resent")
	assert.Equal(t, &confirmed, call.Request.Confirmed)

	// The model repeats the extraction; the gate must not fire again.
	s, effects = step(t, m, s, RoundSucceeded{Diagnosis: extractionDiagnosis()})
	assert.Equal(t, StateComplete, s.State)
	assert.Equal(t, 1, countPersists(effects))

	result := s.Result()
	require.NotNil(t, result)
	assert.Equal(t, chainID, result.ID)
	assert.Equal(t, &confirmed, result.UserConfirmedData)
	assert.Equal(t, image.DataURI(), result.ImageURL)
}

func TestConfirmationMayLeadToFollowUp(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, _ = step(t, m, s, Submit{Image: image, Text: "덜컹 소리"})
	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: extractionDiagnosis()})
	s, _ = step(t, m, s, ConfirmExtraction{Data: domain.ConfirmedData{Brand: "삼성전자", Model: "WW10N645"}})

	triage := triageDiagnosis()
	triage.DetectedModel = "WW10N645"
	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: triage})
	assert.Equal(t, StateFollowUp, s.State)

	answers := domain.Answers{"q1": domain.SingleAnswer("켤 때"), "q2": domain.SingleAnswer("없음")}
	s, effects := step(t, m, s, SubmitAnswers{Answers: answers})
	call := collaboratorCall(t, effects)
	require.NotNil(t, call.Request.Prior)
	assert.NotNil(t, call.Request.Confirmed)
	assert.Equal(t, "덜컹 소리", call.Request.Text)

	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: finalDiagnosis()})
	result := s.Result()
	require.NotNil(t, result)
	assert.Equal(t, "WW10N645", result.UserConfirmedData.Model)
	assert.Equal(t, answers, result.UserAnswers)
}

func TestExtractionWithoutImageIsIgnored(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, _ = step(t, m, s, Submit{Text: "세탁기 WW10N645 소음"})
	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: extractionDiagnosis()})
	assert.Equal(t, StateComplete, s.State)
}

func TestExtractionTakesPrecedenceOverFollowUp(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	d := triageDiagnosis()
	d.DetectedErrorCode = "UE"

	s, _ = step(t, m, s, Submit{Image: image})
	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: d})
	assert.Equal(t, StateConfirmExtraction, s.State)
}

func TestFollowUpAnswersFinalizeDirectly(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, _ = step(t, m, s, Submit{Text: "냉장고 소음"})
	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: triageDiagnosis()})
	require.Equal(t, StateFollowUp, s.State)
	pendingID := s.Pending().ID

	_, _, err := m.Apply(s, SubmitAnswers{Answers: domain.Answers{"q1": domain.SingleAnswer("켤 때")}})
	assert.ErrorIs(t, err, domain.ErrIncompleteAnswers)

	answers := domain.Answers{"q1": domain.SingleAnswer("켤 때"), "q2": domain.SingleAnswer("진동")}
	s, effects := step(t, m, s, SubmitAnswers{Answers: answers})
	call := collaboratorCall(t, effects)
	assert.Equal(t, RoundFollowUp, call.Round)
	assert.Equal(t, "열팽창 소음", call.Request.Prior.Issue)
	assert.Equal(t, float64(45), call.Request.Prior.Probability)

	// A second triage response is still finalized.
	s, effects = step(t, m, s, RoundSucceeded{Diagnosis: triageDiagnosis()})
	assert.Equal(t, StateComplete, s.State)
	assert.Equal(t, 1, countPersists(effects))
	assert.Equal(t, pendingID, s.Result().ID)
	assert.Equal(t, answers, s.Result().UserAnswers)
}

func TestSkipFollowUpUsesPendingUnmodified(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, _ = step(t, m, s, Submit{Text: "냉장고 소음"})
	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: triageDiagnosis()})
	pending := s.Pending().Clone()

	s, effects := step(t, m, s, SkipFollowUp{})
	assert.Equal(t, StateComplete, s.State)
	assert.Equal(t, 1, countPersists(effects))
	assert.Equal(t, pending, s.Result())
	assert.Equal(t, pending, effects[0].(PersistRecord).Record)
}

func TestRoundFailureAndReset(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, _ = step(t, m, s, Submit{Image: image, Text: "소음"})
	s, effects := step(t, m, s, RoundFailed{Err: domain.ErrEmptyResponse})
	assert.Equal(t, StateError, s.State)
	assert.Empty(t, effects)
	assert.Equal(t, domain.ErrEmptyResponse.Error(), s.LastError)

	_, _, err := m.Apply(s, Submit{Text: "다시"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	s, effects = step(t, m, s, Reset{})
	assert.Equal(t, StateIdle, s.State)
	assert.Empty(t, effects)
	assert.Nil(t, s.Inputs)
	assert.Nil(t, s.Held)
	assert.Empty(t, s.LastError)
	assert.Equal(t, "s1", s.ID)
}

func TestInvalidPayloadIsRoundFailure(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	d := finalDiagnosis()
	d.Steps = nil

	s, _ = step(t, m, s, Submit{Text: "소음"})
	s, effects := step(t, m, s, RoundSucceeded{Diagnosis: d})
	assert.Equal(t, StateError, s.State)
	assert.Empty(t, effects)
}

func TestBusySessionRejectsInput(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, _ = step(t, m, s, Submit{Text: "소음"})
	for _, e := range []Event{Submit{Text: "또"}, Reset{}, SkipFollowUp{}, OpenChat{}} {
		_, _, err := m.Apply(s, e)
		assert.ErrorIs(t, err, domain.ErrSessionBusy, "event %s", e.Kind())
	}
}

func TestResolutionUpdatesInPlace(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, _ = step(t, m, s, Submit{Text: "소음"})
	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: finalDiagnosis()})
	before := s.Result().Clone()

	s, effects := step(t, m, s, RecordResolution{Status: domain.ResolutionSolved})
	assert.Equal(t, StateComplete, s.State)
	require.Equal(t, 1, countPersists(effects))

	after := s.Result()
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Timestamp, after.Timestamp)
	assert.Equal(t, domain.ResolutionSolved, after.ResolutionStatus)
	assert.Empty(t, before.ResolutionStatus)

	_, _, err := m.Apply(s, RecordResolution{Status: "MAYBE"})
	assert.ErrorIs(t, err, domain.ErrInvalidResolution)
}

func TestRecheckFinalizesDirectly(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, _ = step(t, m, s, Submit{Text: "소음"})
	first := finalDiagnosis()
	first.BeforeAfterNote = "비교할 이전 진단이 없습니다"
	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: first})
	prior := s.Result()
	assert.False(t, prior.IsRecheck)
	assert.Empty(t, prior.BeforeAfterNote)
	assert.Nil(t, s.Recheck)

	_, _, err := m.Apply(s, RequestRecheck{})
	assert.ErrorIs(t, err, domain.ErrEmptySubmission)

	s, effects := step(t, m, s, RequestRecheck{Image: image})
	assert.Equal(t, StateRechecking, s.State)
	call := collaboratorCall(t, effects)
	assert.Equal(t, RoundRecheck, call.Round)
	require.NotNil(t, call.Request.Recheck)
	assert.Equal(t, prior.ID, call.Request.Recheck.PriorID)
	assert.Equal(t, prior.Issue, call.Request.Recheck.Issue)

	// Triage and extraction fields must not gate a recheck.
	d := triageDiagnosis()
	d.DetectedBrand = "LG"
	d.BeforeAfterNote = "소음이 줄었습니다"
	s, effects = step(t, m, s, RoundSucceeded{Diagnosis: d})
	assert.Equal(t, StateComplete, s.State)
	assert.Equal(t, 1, countPersists(effects))

	result := s.Result()
	assert.Equal(t, HeldRecheck, s.Held.Kind)
	assert.True(t, result.IsRecheck)
	assert.Equal(t, prior.ID, result.FollowUpSessionID)
	assert.NotEqual(t, prior.ID, result.ID)
	assert.False(t, result.NeedsFollowUp)
	assert.Equal(t, "소음이 줄었습니다", result.BeforeAfterNote)
	assert.Equal(t, image.DataURI(), result.ImageURL)
	assert.Nil(t, s.Recheck)

	// a second recheck whose note came back blank gets the fallback note
	s, _ = step(t, m, s, RequestRecheck{Image: image})
	blank := finalDiagnosis()
	blank.BeforeAfterNote = "  "
	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: blank})
	assert.Equal(t, StateComplete, s.State)
	assert.Equal(t, MissingComparisonNote, s.Result().BeforeAfterNote)
	assert.Equal(t, result.ID, s.Result().FollowUpSessionID)
	assert.Nil(t, s.Recheck)
}

func TestLoadRecordNeverCallsCollaborator(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	rec := &domain.DiagnosisResult{ID: "old", Timestamp: 1700000000000, Diagnosis: finalDiagnosis()}
	s, effects := step(t, m, s, LoadRecord{Record: rec})
	assert.Equal(t, StateComplete, s.State)
	assert.Empty(t, effects)
	assert.Equal(t, rec, s.Result())

	s, effects = step(t, m, s, LoadRecord{Record: rec})
	assert.Empty(t, effects)
	assert.Equal(t, "old", s.Result().ID)
	assert.Equal(t, int64(1700000000000), s.Result().Timestamp)
}

func TestOpenChatOnlyWhenComplete(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	_, _, err := m.Apply(s, OpenChat{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	s, _ = step(t, m, s, Submit{Text: "소음"})
	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: finalDiagnosis()})
	next, effects := step(t, m, s, OpenChat{})
	assert.Equal(t, StateComplete, next.State)
	require.Len(t, effects, 1)
	assert.Equal(t, s.Result().ID, effects[0].(StartChat).Record.ID)
}

func TestTooShortReturnsToInputCollection(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, _ = step(t, m, s, SelectInput{Mode: domain.InputAudio})
	assert.Equal(t, StateAwaitingInput, s.State)

	s, effects := step(t, m, s, RejectInput{Notice: "3초 이상 녹음해주세요."})
	assert.Equal(t, StateTooShort, s.State)
	assert.Empty(t, effects)
	assert.Equal(t, domain.InputAudio, s.Mode)

	s, effects = step(t, m, s, Submit{Audio: &domain.MediaInput{Data: "YQ==", MediaType: "audio/webm"}})
	assert.Equal(t, StateAnalyzing, s.State)
	assert.Len(t, effects, 1)
	assert.Empty(t, s.Notice)

	_, _, err := m.Apply(New("s2", "o", baseTime), SelectInput{Mode: "VIDEO"})
	assert.ErrorIs(t, err, domain.ErrInvalidInputMode)
}

func TestEmptySubmissionRejected(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	next, effects, err := m.Apply(s, Submit{Text: "   ", Audio: &domain.MediaInput{}})
	assert.True(t, errors.Is(err, domain.ErrEmptySubmission))
	assert.Empty(t, effects)
	assert.Equal(t, s, next)
}

func TestConfirmationCancelResets(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, _ = step(t, m, s, Submit{Image: image})
	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: extractionDiagnosis()})
	s, effects := step(t, m, s, CancelConfirmation{})
	assert.Equal(t, StateIdle, s.State)
	assert.Empty(t, effects)
	assert.Nil(t, s.Held)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, _ = step(t, m, s, Submit{Text: "냉장고 소음"})
	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: triageDiagnosis()})
	snapshot := s.Pending().Clone()

	_, _, err := m.Apply(s, SkipFollowUp{})
	require.NoError(t, err)
	assert.Equal(t, StateFollowUp, s.State)
	assert.Equal(t, snapshot, s.Pending())
}

func TestCustomImageURLIsKept(t *testing.T) {
	m := testMachine()
	s := New("s1", "owner", baseTime)

	s, _ = step(t, m, s, Submit{Image: image, ImageURL: "https://img.example/1.jpg"})
	s, _ = step(t, m, s, RoundSucceeded{Diagnosis: finalDiagnosis()})
	assert.Equal(t, "https://img.example/1.jpg", s.Result().ImageURL)
}
