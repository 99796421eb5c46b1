package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

// Decode parses a collaborator payload strictly. Any missing required field
// or invalid value fails the whole round.
func Decode(raw []byte) (domain.Diagnosis, error) {
	raw = bytes.TrimSpace(stripFence(raw))
	if len(raw) == 0 {
		return domain.Diagnosis{}, domain.ErrEmptyResponse
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.Diagnosis{}, fmt.Errorf("%w: %v", domain.ErrMalformedDiagnosis, err)
	}
	for _, name := range RequiredFields {
		v, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return domain.Diagnosis{}, fmt.Errorf("%w: missing %s", domain.ErrMalformedDiagnosis, name)
		}
	}

	var wire wireDiagnosis
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.Diagnosis{}, fmt.Errorf("%w: %v", domain.ErrMalformedDiagnosis, err)
	}

	d := wire.toDomain()
	d.Normalize()
	if err := d.Validate(); err != nil {
		return domain.Diagnosis{}, err
	}
	return d, nil
}

// wireDiagnosis accepts step ordinals as floats since the schema declares
// them as numbers.
type wireDiagnosis struct {
	domain.Diagnosis
	Steps []struct {
		Step        float64 `json:"step"`
		Instruction string  `json:"instruction"`
		Detail      string  `json:"detail"`
	} `json:"steps"`
}

func (w wireDiagnosis) toDomain() domain.Diagnosis {
	d := w.Diagnosis
	d.Steps = make([]domain.RepairStep, 0, len(w.Steps))
	for _, s := range w.Steps {
		d.Steps = append(d.Steps, domain.RepairStep{
			Ordinal:     int(math.Round(s.Step)),
			Instruction: s.Instruction,
			Detail:      s.Detail,
		})
	}
	if d.SafetyWarnings == nil {
		d.SafetyWarnings = []string{}
	}
	if d.Evidence == nil {
		d.Evidence = []domain.Evidence{}
	}
	return d
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(raw []byte) []byte {
	t := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(t, []byte("```")) {
		return raw
	}
	t = bytes.TrimPrefix(t, []byte("```"))
	t = bytes.TrimPrefix(t, []byte("json"))
	t = bytes.TrimSuffix(bytes.TrimSpace(t), []byte("```"))
	return t
}
