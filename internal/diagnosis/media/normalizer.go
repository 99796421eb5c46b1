package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

const (
	DefaultMediaType    = "application/octet-stream"
	DefaultMinRecording = 3 * time.Second

	// TooShortNotice is shown when a recording fails the duration check.
	TooShortNotice = "3초 이상 녹음해주세요."
)

// ReadError reports that the underlying media could not be read or decoded.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("media %s: %v", e.Op, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Normalizer turns captured or uploaded media into domain.MediaInput.
type Normalizer struct {
	minRecording time.Duration
	maxBytes     int64
}

func NewNormalizer(minRecording time.Duration, maxBytes int64) *Normalizer {
	if minRecording <= 0 {
		minRecording = DefaultMinRecording
	}
	return &Normalizer{minRecording: minRecording, maxBytes: maxBytes}
}

// FromReader reads r to the end and encodes it. The media type is override,
// then declared, then sniffed from the bytes.
func (n *Normalizer) FromReader(ctx context.Context, r io.Reader, declared, override string) (domain.MediaInput, error) {
	if err := ctx.Err(); err != nil {
		return domain.MediaInput{}, &ReadError{Op: "read", Err: err}
	}
	if n.maxBytes > 0 {
		r = io.LimitReader(r, n.maxBytes+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return domain.MediaInput{}, &ReadError{Op: "read", Err: err}
	}
	if n.maxBytes > 0 && int64(len(b)) > n.maxBytes {
		return domain.MediaInput{}, &ReadError{Op: "read", Err: fmt.Errorf("exceeds %d bytes", n.maxBytes)}
	}
	if len(b) == 0 {
		return domain.MediaInput{}, &ReadError{Op: "read", Err: io.ErrUnexpectedEOF}
	}

	return domain.MediaInput{
		Data:      base64.StdEncoding.EncodeToString(b),
		MediaType: resolveType(override, declared, b),
	}, nil
}

// FromEncoded accepts a bare base64 payload or a data URI. Only the payload
// after the first comma of a data URI is kept.
func (n *Normalizer) FromEncoded(s, override string) (domain.MediaInput, error) {
	s = strings.TrimSpace(s)
	declared := ""
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok {
			return domain.MediaInput{}, &ReadError{Op: "decode", Err: fmt.Errorf("data URI without payload")}
		}
		declared = dataURIType(header)
		s = payload
	}
	if s == "" {
		return domain.MediaInput{}, &ReadError{Op: "decode", Err: io.ErrUnexpectedEOF}
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return domain.MediaInput{}, &ReadError{Op: "decode", Err: err}
	}
	if n.maxBytes > 0 && int64(len(b)) > n.maxBytes {
		return domain.MediaInput{}, &ReadError{Op: "decode", Err: fmt.Errorf("exceeds %d bytes", n.maxBytes)}
	}

	return domain.MediaInput{
		Data:      s,
		MediaType: resolveType(override, declared, b),
	}, nil
}

// CheckDuration rejects recordings shorter than the configured minimum.
// A zero duration means the client did not report one.
func (n *Normalizer) CheckDuration(d time.Duration) error {
	if d > 0 && d < n.minRecording {
		return domain.ErrRecordingTooShort
	}
	return nil
}

func resolveType(override, declared string, b []byte) string {
	if t := strings.TrimSpace(override); t != "" {
		return t
	}
	if t := strings.TrimSpace(declared); t != "" && t != DefaultMediaType {
		return t
	}
	if len(b) > 0 {
		if m := mimetype.Detect(b); m != nil && m.String() != "text/plain; charset=utf-8" {
			return stripParams(m.String())
		}
	}
	return DefaultMediaType
}

// dataURIType extracts "image/png" from "data:image/png;base64".
func dataURIType(header string) string {
	t := strings.TrimPrefix(header, "data:")
	if i := strings.Index(t, ";"); i >= 0 {
		t = t[:i]
	}
	return t
}

func stripParams(t string) string {
	if i := strings.Index(t, ";"); i >= 0 {
		return t[:i]
	}
	return t
}
