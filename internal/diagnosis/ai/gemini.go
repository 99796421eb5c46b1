package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

// Collaborator runs one diagnosis round.
type Collaborator interface {
	Diagnose(ctx context.Context, req Request) (domain.Diagnosis, error)
}

type GeminiConfig struct {
	APIKey         string
	DiagnosisModel string
	ChatModel      string
	RPS            float64
	Burst          int
	// RequestTimeout bounds each HTTP call. A call that exceeds it fails
	// like any other transport error. Zero means no limit.
	RequestTimeout time.Duration
}

// Gemini is the genai-backed collaborator. One rate limiter guards the
// diagnosis, chat and lookup calls.
type Gemini struct {
	cli     *genai.Client
	cfg     GeminiConfig
	limiter *rate.Limiter
	metrics *Metrics
	log     *zap.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, log *zap.Logger) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	cli, err := genai.NewClient(ctx, clientConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	if cfg.DiagnosisModel == "" {
		cfg.DiagnosisModel = DiagnosisModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = ChatModel
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gemini{
		cli:     cli,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		metrics: NewMetrics(),
		log:     log.Named("gemini"),
	}, nil
}

func (g *Gemini) Metrics() *Metrics { return g.metrics }

// Diagnose sends one round with the strict output schema.
func (g *Gemini) Diagnose(ctx context.Context, req Request) (d domain.Diagnosis, err error) {
	start := time.Now()
	defer func() { g.metrics.recordRound(time.Since(start), err) }()

	if err := req.Validate(); err != nil {
		return domain.Diagnosis{}, err
	}
	parts, err := toGenaiParts(req.Parts())
	if err != nil {
		return domain.Diagnosis{}, err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return domain.Diagnosis{}, fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.cfg.DiagnosisModel,
		[]*genai.Content{{Role: "user", Parts: parts}},
		&genai.GenerateContentConfig{
			SystemInstruction: textContent(SystemInstruction(req.IsRecheck())),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    DiagnosisSchema(),
		},
	)
	if err != nil {
		g.log.Warn("diagnosis round failed", zap.Error(err), zap.Bool("recheck", req.IsRecheck()))
		return domain.Diagnosis{}, fmt.Errorf("generate diagnosis: %w", err)
	}

	d, err = Decode([]byte(responseText(resp)))
	if err != nil {
		g.log.Warn("diagnosis payload rejected", zap.Error(err))
		return domain.Diagnosis{}, err
	}
	return d, nil
}

// Stream answers a chat message, yielding text fragments in arrival order.
func (g *Gemini) Stream(ctx context.Context, history []domain.ChatMessage, message string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var streamErr error
		defer func() { g.metrics.recordChat(streamErr) }()

		if err := g.limiter.Wait(ctx); err != nil {
			streamErr = fmt.Errorf("rate limit wait: %w", err)
			yield("", streamErr)
			return
		}

		contents := make([]*genai.Content, 0, len(history)+1)
		for _, m := range history {
			contents = append(contents, &genai.Content{
				Role:  string(m.Role),
				Parts: []*genai.Part{{Text: m.Text}},
			})
		}
		contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: message}}})

		stream := g.cli.Models.GenerateContentStream(ctx, g.cfg.ChatModel, contents,
			&genai.GenerateContentConfig{SystemInstruction: textContent(ChatInstruction())})
		for resp, err := range stream {
			if err != nil {
				streamErr = err
				yield("", fmt.Errorf("chat stream: %w", err))
				return
			}
			if t := responseText(resp); t != "" {
				if !yield(t, nil) {
					return
				}
			}
		}
	}
}

// SearchServiceCenters asks a Maps-grounded model for service centers
// around the given coordinate.
func (g *Gemini) SearchServiceCenters(ctx context.Context, query string, lat, lng float64) (text string, err error) {
	defer func() { g.metrics.recordLookup(err) }()

	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.cfg.ChatModel,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: query}}}},
		lookupConfig(lat, lng),
	)
	if err != nil {
		return "", fmt.Errorf("service center lookup: %w", err)
	}
	return responseText(resp), nil
}

// lookupConfig grounds the lookup on Google Maps at the user's position.
func lookupConfig(lat, lng float64) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}},
		ToolConfig: &genai.ToolConfig{
			RetrievalConfig: &genai.RetrievalConfig{
				LatLng: &genai.LatLng{Latitude: &lat, Longitude: &lng},
			},
		},
	}
}

func clientConfig(cfg GeminiConfig) *genai.ClientConfig {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.RequestTimeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return cc
}

func toGenaiParts(parts []Part) ([]*genai.Part, error) {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if !p.IsMedia() {
			out = append(out, &genai.Part{Text: p.Text})
			continue
		}
		b, err := base64.StdEncoding.DecodeString(p.Media.Data)
		if err != nil {
			return nil, fmt.Errorf("decode %s part: %w", p.Kind, err)
		}
		out = append(out, &genai.Part{InlineData: &genai.Blob{MIMEType: p.Media.MediaType, Data: b}})
	}
	return out, nil
}

func textContent(s string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: s}}}
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
