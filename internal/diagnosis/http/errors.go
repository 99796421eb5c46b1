package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/guided"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/media"
	"github.com/fixitnow/fixitnow-backend/internal/logging"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var readErr *media.ReadError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionBusy),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNoExtraction),
		errors.Is(err, domain.ErrChatNotOpen):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmptySubmission),
		errors.Is(err, domain.ErrIncompleteAnswers),
		errors.Is(err, domain.ErrInvalidResolution),
		errors.Is(err, domain.ErrInvalidInputMode),
		errors.Is(err, domain.ErrRecordingTooShort),
		errors.Is(err, guided.ErrApplianceRequired),
		errors.As(err, &readErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request.Context(), h.log).Error("request failed", zap.String("operation", op), zap.Error(err))
		c.JSON(status, gin.H{"error": "failed to " + op})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
