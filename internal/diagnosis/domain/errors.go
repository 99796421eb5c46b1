package domain

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionBusy        = errors.New("session is busy with a diagnosis round")
	ErrInvalidTransition  = errors.New("event not accepted in current state")
	ErrEmptySubmission    = errors.New("submission needs audio, image or text")
	ErrIncompleteAnswers  = errors.New("every follow-up question must be answered")
	ErrNoExtraction       = errors.New("confirmation requires extracted device data")
	ErrMalformedDiagnosis = errors.New("malformed diagnosis payload")
	ErrEmptyResponse      = errors.New("collaborator returned no payload")
	ErrChatNotOpen        = errors.New("chat is not open for this session")
	ErrInvalidResolution  = errors.New("invalid resolution status")
	ErrInvalidInputMode   = errors.New("invalid input mode")
	ErrRecordingTooShort  = errors.New("recording too short")
	ErrRecordNotFound     = errors.New("history record not found")
)
