package http

import (
	"time"

	"go.uber.org/zap"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/ai"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/guided"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/media"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/service"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/session"
)

// Handler handles HTTP requests for diagnosis sessions
type Handler struct {
	svc          *service.DiagnosisService
	normalizer   *media.Normalizer
	aiMetrics    *ai.Metrics
	log          *zap.Logger
	keepAlive    time.Duration
	maxFormBytes int64
}

type Option func(*Handler)

// WithCollaboratorMetrics exposes collaborator counters on the metrics route.
func WithCollaboratorMetrics(m *ai.Metrics) Option {
	return func(h *Handler) { h.aiMetrics = m }
}

func WithKeepAlive(d time.Duration) Option {
	return func(h *Handler) { h.keepAlive = d }
}

// New creates a new Handler
func New(svc *service.DiagnosisService, normalizer *media.Normalizer, log *zap.Logger, opts ...Option) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		svc:          svc,
		normalizer:   normalizer,
		log:          log,
		keepAlive:    15 * time.Second,
		maxFormBytes: 32 << 20,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

type mediaBody struct {
	Data       string `json:"data"`
	MimeType   string `json:"mimeType"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

type submitRequest struct {
	Audio  *mediaBody   `json:"audio,omitempty"`
	Image  *mediaBody   `json:"image,omitempty"`
	Text   string       `json:"text,omitempty"`
	Guided *guided.Form `json:"guided,omitempty"`
}

type inputModeRequest struct {
	Mode domain.InputMode `json:"mode"`
}

type answersRequest struct {
	Answers domain.Answers `json:"answers"`
}

type resolutionRequest struct {
	Status string `json:"status"`
}

type loadRequest struct {
	RecordID string `json:"recordId"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// sessionView is the client-facing session. Captured media is left out.
type sessionView struct {
	ID        string                  `json:"id"`
	State     session.State           `json:"state"`
	Mode      domain.InputMode        `json:"mode,omitempty"`
	HeldKind  session.HeldKind        `json:"heldKind,omitempty"`
	Pending   *domain.DiagnosisResult `json:"pending,omitempty"`
	Result    *domain.DiagnosisResult `json:"result,omitempty"`
	Notice    string                  `json:"notice,omitempty"`
	LastError string                  `json:"lastError,omitempty"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

func toSessionView(s session.Session) sessionView {
	v := sessionView{
		ID:        s.ID,
		State:     s.State,
		Mode:      s.Mode,
		Pending:   s.Pending(),
		Result:    s.Result(),
		Notice:    s.Notice,
		LastError: s.LastError,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Held != nil {
		v.HeldKind = s.Held.Kind
	}
	return v
}

type outcomeResponse struct {
	Session sessionView               `json:"session"`
	History []*domain.DiagnosisResult `json:"history,omitempty"`
	Chat    []domain.ChatMessage      `json:"chat,omitempty"`
}

func toOutcomeResponse(out *service.Outcome) outcomeResponse {
	return outcomeResponse{
		Session: toSessionView(out.Session),
		History: out.History,
		Chat:    out.Chat,
	}
}
