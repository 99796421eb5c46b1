package domain

// MediaInput is a canonical media payload: base64 text plus its media type.
type MediaInput struct {
	Data      string `json:"data"`
	MediaType string `json:"mimeType"`
}

// DataURI renders the media as a data URI for display.
func (m MediaInput) DataURI() string {
	return "data:" + m.MediaType + ";base64," + m.Data
}

// IsZero reports whether the input carries no payload.
func (m MediaInput) IsZero() bool {
	return m.Data == ""
}

type RepairStep struct {
	Ordinal     int    `json:"step"`
	Instruction string `json:"instruction"`
	Detail      string `json:"detail"`
}

type FollowUpQuestion struct {
	ID      string       `json:"id"`
	Prompt  string       `json:"question"`
	Kind    QuestionKind `json:"type"`
	Options []string     `json:"options,omitempty"`
}

type AlternativeCause struct {
	Issue              string  `json:"issue"`
	Probability        float64 `json:"probability"`
	HowToDifferentiate string  `json:"howToDifferentiate"`
}

type Evidence struct {
	Source  EvidenceSource `json:"source"`
	Title   string         `json:"title"`
	Snippet string         `json:"snippet"`
}

// ConfirmedData is the brand/model/error-code triple reviewed by the user.
type ConfirmedData struct {
	Brand     string `json:"brand"`
	Model     string `json:"model"`
	ErrorCode string `json:"errorCode"`
}

// Diagnosis is the payload returned by the AI collaborator, before any
// session-local stamping.
type Diagnosis struct {
	Appliance       string       `json:"appliance"`
	Issue           string       `json:"issue"`
	Probability     float64      `json:"probability"`
	Description     string       `json:"description"`
	ManualReference string       `json:"manualReference"`
	Steps           []RepairStep `json:"steps"`

	NeedsFollowUp     bool               `json:"needsFollowUp"`
	FollowUpQuestions []FollowUpQuestion `json:"followUpQuestions,omitempty"`
	Alternatives      []AlternativeCause `json:"alternatives,omitempty"`

	SafetyLevel        SafetyLevel `json:"safetyLevel"`
	SafetyWarnings     []string    `json:"safetyWarnings"`
	StopAndCallService bool        `json:"stopAndCallService"`

	DetectedBrand     string   `json:"detectedBrand,omitempty"`
	DetectedModel     string   `json:"detectedModel,omitempty"`
	DetectedErrorCode string   `json:"detectedErrorCode,omitempty"`
	ImageFindings     []string `json:"imageFindings,omitempty"`

	Evidence []Evidence `json:"evidence"`

	BeforeAfterNote string `json:"beforeAfterNote,omitempty"`
}

// HasExtraction reports whether any device metadata was read from a photo.
func (d Diagnosis) HasExtraction() bool {
	return d.DetectedBrand != "" || d.DetectedModel != "" || d.DetectedErrorCode != ""
}

// AsksFollowUp reports whether the diagnosis pauses for clarification.
func (d Diagnosis) AsksFollowUp() bool {
	return d.NeedsFollowUp && len(d.FollowUpQuestions) > 0
}

// DiagnosisResult is a diagnosis stamped with session identity. It is the
// record kept in history.
type DiagnosisResult struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`

	Diagnosis

	ImageURL          string         `json:"imageUrl,omitempty"`
	UserAnswers       Answers        `json:"userAnswers,omitempty"`
	UserConfirmedData *ConfirmedData `json:"userConfirmedData,omitempty"`

	ResolutionStatus  ResolutionStatus `json:"resolutionStatus,omitempty"`
	FollowUpSessionID string           `json:"followUpSessionId,omitempty"`
	IsRecheck         bool             `json:"isRecheck,omitempty"`
}

// Clone returns a deep copy so that held and persisted records never share
// slices or maps.
func (r *DiagnosisResult) Clone() *DiagnosisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Steps = cloneSlice(r.Steps)
	out.FollowUpQuestions = cloneQuestions(r.FollowUpQuestions)
	out.Alternatives = cloneSlice(r.Alternatives)
	out.SafetyWarnings = cloneSlice(r.SafetyWarnings)
	out.ImageFindings = cloneSlice(r.ImageFindings)
	out.Evidence = cloneSlice(r.Evidence)
	out.UserAnswers = r.UserAnswers.Clone()
	if r.UserConfirmedData != nil {
		cd := *r.UserConfirmedData
		out.UserConfirmedData = &cd
	}
	return &out
}

// cloneSlice keeps the nil/empty distinction so JSON output is unchanged.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}

func cloneQuestions(in []FollowUpQuestion) []FollowUpQuestion {
	if in == nil {
		return nil
	}
	out := make([]FollowUpQuestion, len(in))
	for i, q := range in {
		q.Options = cloneSlice(q.Options)
		out[i] = q
	}
	return out
}

// ChatMessage is one turn of the follow-up conversation.
type ChatMessage struct {
	ID        string   `json:"id"`
	Role      ChatRole `json:"role"`
	Text      string   `json:"text"`
	Timestamp int64    `json:"timestamp"`
}
