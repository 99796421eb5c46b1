package domain

import "strings"

type SafetyLevel string

const (
	SafetyLow    SafetyLevel = "LOW"
	SafetyMedium SafetyLevel = "MEDIUM"
	SafetyHigh   SafetyLevel = "HIGH"
)

func (s SafetyLevel) Valid() bool {
	switch s {
	case SafetyLow, SafetyMedium, SafetyHigh:
		return true
	}
	return false
}

type QuestionKind string

const (
	QuestionSingle QuestionKind = "single"
	QuestionMulti  QuestionKind = "multi"
	QuestionText   QuestionKind = "text"
)

func (k QuestionKind) Valid() bool {
	switch k {
	case QuestionSingle, QuestionMulti, QuestionText:
		return true
	}
	return false
}

type EvidenceSource string

const (
	EvidenceManual  EvidenceSource = "MANUAL"
	EvidenceGeneral EvidenceSource = "GENERAL"
)

type ResolutionStatus string

const (
	ResolutionSolved    ResolutionStatus = "SOLVED"
	ResolutionNotSolved ResolutionStatus = "NOT_SOLVED"
	ResolutionUnknown   ResolutionStatus = "UNKNOWN"
)

// ParseResolutionStatus accepts the status names case-insensitively.
func ParseResolutionStatus(s string) (ResolutionStatus, error) {
	switch ResolutionStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case ResolutionSolved:
		return ResolutionSolved, nil
	case ResolutionNotSolved:
		return ResolutionNotSolved, nil
	case ResolutionUnknown:
		return ResolutionUnknown, nil
	}
	return "", ErrInvalidResolution
}

type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// InputMode is the input the user picked before submitting.
type InputMode string

const (
	InputAudio InputMode = "AUDIO"
	InputText  InputMode = "TEXT"
	InputImage InputMode = "IMAGE"
)

func (m InputMode) Valid() bool {
	switch m {
	case InputAudio, InputText, InputImage:
		return true
	}
	return false
}
