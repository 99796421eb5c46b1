package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fixitnow/fixitnow-backend/internal/auth"
)

// OpenChat starts the follow-up conversation on the session's result
func (h *Handler) OpenChat(c *gin.Context) {
	h.respond(c, "open chat", h.svc.OpenChat)
}

// ChatMessages returns the conversation so far
func (h *Handler) ChatMessages(c *gin.Context) {
	msgs, err := h.svc.ChatMessages(c.Request.Context(), auth.Owner(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "get chat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// CloseChat stops any reply in progress and forgets the conversation
func (h *Handler) CloseChat(c *gin.Context) {
	if err := h.svc.CloseChat(c.Request.Context(), auth.Owner(c), c.Param("id")); err != nil {
		h.writeError(c, "close chat", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SendChat streams the reply as SSE "delta" events followed by a "done"
// event carrying the stored message. ?stream=false returns plain JSON.
func (h *Handler) SendChat(c *gin.Context) {
	var body chatRequest
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing message"})
		return
	}
	ctx := c.Request.Context()
	owner, id := auth.Owner(c), c.Param("id")

	if c.Query("stream") == "false" {
		reply, err := h.svc.SendChat(ctx, owner, id, body.Message, nil)
		if err != nil {
			h.writeError(c, "send chat", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": reply})
		return
	}

	// fail before switching to event-stream when the chat is not open
	if _, err := h.svc.ChatMessages(ctx, owner, id); err != nil {
		h.writeError(c, "send chat", err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sse := &sseWriter{c: c, flusher: flusher}
	stop := sse.keepAlive(h.keepAlive)
	defer stop()

	reply, err := h.svc.SendChat(ctx, owner, id, body.Message, func(fragment string) {
		sse.event("delta", jsonString(fragment))
	})
	if err != nil {
		sse.event("error", jsonString(err.Error()))
		return
	}
	data, _ := json.Marshal(reply)
	sse.event("done", string(data))
}

// sseWriter serializes writes from the reply stream and the keep-alive ticker.
type sseWriter struct {
	mu      sync.Mutex
	c       *gin.Context
	flusher http.Flusher
}

func (w *sseWriter) event(name, data string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.c.Writer, "event: %s\ndata: %s\n\n", name, data)
	w.flusher.Flush()
}

func (w *sseWriter) comment(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.c.Writer, ": %s\n\n", text)
	w.flusher.Flush()
}

func (w *sseWriter) keepAlive(every time.Duration) func() {
	if every <= 0 {
		return func() {}
	}
	ctx := w.c.Request.Context()
	done := make(chan struct{})
	stopped := make(chan struct{})
	ticker := time.NewTicker(every)
	go func() {
		defer close(stopped)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				w.comment("keep-alive")
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

