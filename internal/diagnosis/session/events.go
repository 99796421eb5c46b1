package session

import "github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"

type EventKind string

const (
	EventSelectInput        EventKind = "select_input"
	EventSubmit             EventKind = "submit"
	EventRejectInput        EventKind = "reject_input"
	EventRoundSucceeded     EventKind = "round_succeeded"
	EventRoundFailed        EventKind = "round_failed"
	EventConfirmExtraction  EventKind = "confirm_extraction"
	EventCancelConfirmation EventKind = "cancel_confirmation"
	EventSubmitAnswers      EventKind = "submit_answers"
	EventSkipFollowUp       EventKind = "skip_follow_up"
	EventRecordResolution   EventKind = "record_resolution"
	EventRequestRecheck     EventKind = "request_recheck"
	EventOpenChat           EventKind = "open_chat"
	EventLoadRecord         EventKind = "load_record"
	EventReset              EventKind = "reset"
)

type Event interface {
	Kind() EventKind
}

// SelectInput picks the input mode before anything is captured.
type SelectInput struct{ Mode domain.InputMode }

// Submit starts a new diagnosis chain. ImageURL is the display URL of the
// image, when the caller stored it somewhere; otherwise a data URI is used.
type Submit struct {
	Audio    *domain.MediaInput
	Image    *domain.MediaInput
	Text     string
	ImageURL string
}

// RejectInput reports an input that failed local validation.
type RejectInput struct{ Notice string }

type RoundSucceeded struct{ Diagnosis domain.Diagnosis }

type RoundFailed struct{ Err error }

type ConfirmExtraction struct{ Data domain.ConfirmedData }

type CancelConfirmation struct{}

type SubmitAnswers struct{ Answers domain.Answers }

type SkipFollowUp struct{}

type RecordResolution struct{ Status domain.ResolutionStatus }

type RequestRecheck struct {
	Audio    *domain.MediaInput
	Image    *domain.MediaInput
	ImageURL string
}

type OpenChat struct{}

// LoadRecord shows a stored record without contacting the collaborator.
type LoadRecord struct{ Record *domain.DiagnosisResult }

type Reset struct{}

func (SelectInput) Kind() EventKind        { return EventSelectInput }
func (Submit) Kind() EventKind             { return EventSubmit }
func (RejectInput) Kind() EventKind        { return EventRejectInput }
func (RoundSucceeded) Kind() EventKind     { return EventRoundSucceeded }
func (RoundFailed) Kind() EventKind        { return EventRoundFailed }
func (ConfirmExtraction) Kind() EventKind  { return EventConfirmExtraction }
func (CancelConfirmation) Kind() EventKind { return EventCancelConfirmation }
func (SubmitAnswers) Kind() EventKind      { return EventSubmitAnswers }
func (SkipFollowUp) Kind() EventKind       { return EventSkipFollowUp }
func (RecordResolution) Kind() EventKind   { return EventRecordResolution }
func (RequestRecheck) Kind() EventKind     { return EventRequestRecheck }
func (OpenChat) Kind() EventKind           { return EventOpenChat }
func (LoadRecord) Kind() EventKind         { return EventLoadRecord }
func (Reset) Kind() EventKind              { return EventReset }
