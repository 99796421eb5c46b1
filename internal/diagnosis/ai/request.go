package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

type PartKind string

const (
	PartAudio     PartKind = "audio"
	PartImage     PartKind = "image"
	PartText      PartKind = "text"
	PartConfirmed PartKind = "confirmed"
	PartPrior     PartKind = "prior"
	PartRecheck   PartKind = "recheck"
)

// Part is one element of the ordered request payload. Media parts carry
// Media, all others carry Text.
type Part struct {
	Kind  PartKind
	Media *domain.MediaInput
	Text  string
}

func (p Part) IsMedia() bool { return p.Media != nil }

// PriorContext is the pending diagnosis being refined by follow-up answers.
type PriorContext struct {
	Issue       string
	Probability float64
	Answers     domain.Answers
}

// RecheckContext references the finalized diagnosis a recheck compares to.
type RecheckContext struct {
	PriorID     string `json:"priorId"`
	Issue       string `json:"issue"`
	Description string `json:"description"`
}

// Request is one diagnosis round. The collaborator is stateless, so every
// continuation round resends the original inputs.
type Request struct {
	Audio     *domain.MediaInput
	Image     *domain.MediaInput
	Text      string
	Confirmed *domain.ConfirmedData
	Prior     *PriorContext
	Recheck   *RecheckContext
}

func (r Request) IsRecheck() bool { return r.Recheck != nil }

// HasImage reports whether the round includes a photo.
func (r Request) HasImage() bool { return r.Image != nil && !r.Image.IsZero() }

// Validate requires at least one content-bearing part.
func (r Request) Validate() error {
	if len(r.Parts()) == 0 {
		return domain.ErrEmptySubmission
	}
	return nil
}

// Parts returns the payload in collaborator order: audio, image, description,
// confirmed metadata, prior diagnosis with answers, recheck comparison.
func (r Request) Parts() []Part {
	var parts []Part
	if r.Audio != nil && !r.Audio.IsZero() {
		parts = append(parts, Part{Kind: PartAudio, Media: r.Audio})
	}
	if r.HasImage() {
		parts = append(parts, Part{Kind: PartImage, Media: r.Image})
	}
	if t := strings.TrimSpace(r.Text); t != "" {
		parts = append(parts, Part{Kind: PartText, Text: "증상 설명: " + t})
	}
	if r.Confirmed != nil {
		parts = append(parts, Part{Kind: PartConfirmed, Text: confirmedText(*r.Confirmed)})
	}
	if r.Prior != nil {
		parts = append(parts, Part{Kind: PartPrior, Text: priorText(*r.Prior)})
	}
	if r.Recheck != nil {
		parts = append(parts, Part{Kind: PartRecheck, Text: recheckText(*r.Recheck)})
	}
	return parts
}

func confirmedText(c domain.ConfirmedData) string {
	return fmt.Sprintf("사용자 확인 정보 - 브랜드: %s, 모델명: %s, 에러코드: %s.", c.Brand, c.Model, c.ErrorCode)
}

func priorText(p PriorContext) string {
	answers, err := json.Marshal(p.Answers)
	if err != nil || p.Answers == nil {
		answers = []byte("{}")
	}
	return fmt.Sprintf("이전 분석 결과: %s (%s%%)\n사용자의 추가 답변: %s",
		p.Issue, strconv.FormatFloat(p.Probability, 'f', -1, 64), answers)
}

func recheckText(r RecheckContext) string {
	return fmt.Sprintf("[재점검 요청] 이전 진단 결과: %s.\n당시 설명: %s.\n"+
		"사용자가 수리 조치를 취한 후의 새로운 상태(소리/사진)를 전달합니다.\n"+
		"이전과 비교하여 개선되었는지, 문제가 여전한지 분석하십시오.", r.Issue, r.Description)
}
