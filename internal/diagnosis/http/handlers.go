package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fixitnow/fixitnow-backend/internal/auth"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/service"
)

// CreateSession creates an idle diagnosis session
func (h *Handler) CreateSession(c *gin.Context) {
	sess, err := h.svc.CreateSession(c.Request.Context(), auth.Owner(c))
	if err != nil {
		h.writeError(c, "create session", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": toSessionView(sess)})
}

// GetSession retrieves a session by ID
func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.svc.GetSession(c.Request.Context(), auth.Owner(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "get session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": toSessionView(sess)})
}

// ListSessions returns the caller's live sessions, most recently updated first
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.svc.ListSessions(c.Request.Context(), auth.Owner(c))
	if err != nil {
		h.writeError(c, "list sessions", err)
		return
	}
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, toSessionView(s))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views})
}

// DeleteSession discards a session and closes its chat
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.svc.DeleteSession(c.Request.Context(), auth.Owner(c), c.Param("id")); err != nil {
		h.writeError(c, "delete session", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SelectInput(c *gin.Context) {
	var body inputModeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	mode := domain.InputMode(strings.ToUpper(strings.TrimSpace(string(body.Mode))))
	h.respond(c, "select input", func(ctx context.Context, owner, id string) (*service.Outcome, error) {
		return h.svc.SelectInput(ctx, owner, id, mode)
	})
}

// Submit accepts JSON or multipart input and runs the first diagnosis round.
// A failed round is reported through the session state, not the status code.
func (h *Handler) Submit(c *gin.Context) {
	in, err := h.parseSubmit(c)
	if err != nil {
		h.writeError(c, "submit", err)
		return
	}
	h.respond(c, "submit", func(ctx context.Context, owner, id string) (*service.Outcome, error) {
		return h.svc.Submit(ctx, owner, id, in)
	})
}

func (h *Handler) ConfirmExtraction(c *gin.Context) {
	var body domain.ConfirmedData
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.respond(c, "confirm extraction", func(ctx context.Context, owner, id string) (*service.Outcome, error) {
		return h.svc.ConfirmExtraction(ctx, owner, id, body)
	})
}

func (h *Handler) CancelConfirmation(c *gin.Context) {
	h.respond(c, "cancel confirmation", h.svc.CancelConfirmation)
}

func (h *Handler) SubmitAnswers(c *gin.Context) {
	var body answersRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.respond(c, "submit answers", func(ctx context.Context, owner, id string) (*service.Outcome, error) {
		return h.svc.SubmitAnswers(ctx, owner, id, body.Answers)
	})
}

func (h *Handler) SkipFollowUp(c *gin.Context) {
	h.respond(c, "skip follow-up", h.svc.SkipFollowUp)
}

func (h *Handler) RecordResolution(c *gin.Context) {
	var body resolutionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	status, err := domain.ParseResolutionStatus(body.Status)
	if err != nil {
		h.writeError(c, "record resolution", err)
		return
	}
	h.respond(c, "record resolution", func(ctx context.Context, owner, id string) (*service.Outcome, error) {
		return h.svc.RecordResolution(ctx, owner, id, status)
	})
}

func (h *Handler) Recheck(c *gin.Context) {
	in, err := h.parseSubmit(c)
	if err != nil {
		h.writeError(c, "recheck", err)
		return
	}
	h.respond(c, "recheck", func(ctx context.Context, owner, id string) (*service.Outcome, error) {
		return h.svc.Recheck(ctx, owner, id, service.RecheckInput{
			Audio:         in.Audio,
			AudioDuration: in.AudioDuration,
			Image:         in.Image,
		})
	})
}

func (h *Handler) LoadFromHistory(c *gin.Context) {
	var body loadRequest
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.RecordID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recordId is required"})
		return
	}
	h.respond(c, "load from history", func(ctx context.Context, owner, id string) (*service.Outcome, error) {
		return h.svc.LoadFromHistory(ctx, owner, id, body.RecordID)
	})
}

func (h *Handler) Reset(c *gin.Context) {
	h.respond(c, "reset", h.svc.Reset)
}

type operation func(ctx context.Context, owner, id string) (*service.Outcome, error)

func (h *Handler) respond(c *gin.Context, op string, fn operation) {
	out, err := fn(c.Request.Context(), auth.Owner(c), c.Param("id"))
	if err != nil {
		h.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, toOutcomeResponse(out))
}

// ListHistory returns the owner's records, newest first
func (h *Handler) ListHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": h.svc.History(c.Request.Context(), auth.Owner(c))})
}

// ClearHistory removes every record of the owner
func (h *Handler) ClearHistory(c *gin.Context) {
	h.svc.ClearHistory(c.Request.Context(), auth.Owner(c))
	c.JSON(http.StatusOK, gin.H{"history": []*domain.DiagnosisResult{}})
}

// FindServiceCenters looks up repair centers near the given coordinates
func (h *Handler) FindServiceCenters(c *gin.Context) {
	appliance := strings.TrimSpace(c.Query("appliance"))
	if appliance == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appliance is required"})
		return
	}
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be valid coordinates"})
		return
	}
	text := h.svc.FindServiceCenters(c.Request.Context(), appliance, c.Query("brand"), lat, lng)
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// Metrics reports session and collaborator counters
func (h *Handler) Metrics(c *gin.Context) {
	body := gin.H{"service": h.svc.Metrics()}
	if h.aiMetrics != nil {
		body["collaborator"] = h.aiMetrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}

func durationMs(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
