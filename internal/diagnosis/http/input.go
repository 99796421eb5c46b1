package http

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/guided"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/media"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/service"
)

// parseSubmit reads a submission from a JSON body or a multipart form with
// "audio" and "image" file parts. A guided form replaces the free text.
func (h *Handler) parseSubmit(c *gin.Context) (service.SubmitInput, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return h.parseMultipart(c)
	}

	var body submitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		return service.SubmitInput{}, &media.ReadError{Op: "decode", Err: fmt.Errorf("invalid request body: %w", err)}
	}

	var in service.SubmitInput
	if body.Audio != nil && body.Audio.Data != "" {
		m, err := h.normalizer.FromEncoded(body.Audio.Data, body.Audio.MimeType)
		if err != nil {
			return service.SubmitInput{}, err
		}
		in.Audio = &m
		in.AudioDuration = durationMs(body.Audio.DurationMs)
	}
	if body.Image != nil && body.Image.Data != "" {
		m, err := h.normalizer.FromEncoded(body.Image.Data, body.Image.MimeType)
		if err != nil {
			return service.SubmitInput{}, err
		}
		in.Image = &m
	}

	in.Text = body.Text
	if body.Guided != nil {
		summary, err := body.Guided.Summary()
		if err != nil {
			return service.SubmitInput{}, err
		}
		in.Text = summary
	}
	return in, nil
}

func (h *Handler) parseMultipart(c *gin.Context) (service.SubmitInput, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFormBytes)

	var in service.SubmitInput
	audio, err := h.formMedia(c, "audio")
	if err != nil {
		return service.SubmitInput{}, err
	}
	image, err := h.formMedia(c, "image")
	if err != nil {
		return service.SubmitInput{}, err
	}
	in.Audio, in.Image = audio, image
	in.Text = c.PostForm("text")

	if raw := strings.TrimSpace(c.PostForm("audioDurationMs")); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return service.SubmitInput{}, &media.ReadError{Op: "decode", Err: fmt.Errorf("audioDurationMs: %w", err)}
		}
		in.AudioDuration = durationMs(ms)
	}
	return in, nil
}

func (h *Handler) formMedia(c *gin.Context, field string) (*domain.MediaInput, error) {
	fh, err := c.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, &media.ReadError{Op: "read", Err: fmt.Errorf("%s: %w", field, err)}
	}
	m, err := h.readPart(c, fh, c.PostForm(field+"MimeType"))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (h *Handler) readPart(c *gin.Context, fh *multipart.FileHeader, override string) (domain.MediaInput, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.MediaInput{}, &media.ReadError{Op: "open", Err: err}
	}
	defer f.Close()
	return h.normalizer.FromReader(c.Request.Context(), f, fh.Header.Get("Content-Type"), override)
}

// GuidedCatalog lists the appliance categories and sound words of the
// guided description form
func (h *Handler) GuidedCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": guided.Catalog()})
}
