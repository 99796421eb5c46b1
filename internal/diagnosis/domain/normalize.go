package domain

import (
	"fmt"
	"strings"
)

const (
	MaxAlternatives = 3
	MaxEvidence     = 3
)

// Normalize enforces the record invariants that the collaborator is asked
// for but cannot be trusted to keep.
func (d *Diagnosis) Normalize() {
	d.SafetyLevel = SafetyLevel(strings.ToUpper(strings.TrimSpace(string(d.SafetyLevel))))
	if d.SafetyLevel == SafetyHigh {
		d.StopAndCallService = true
	}

	for i := range d.Steps {
		d.Steps[i].Ordinal = i + 1
	}

	d.Probability = clampPercent(d.Probability)
	for i := range d.Alternatives {
		d.Alternatives[i].Probability = clampPercent(d.Alternatives[i].Probability)
	}
	if len(d.Alternatives) > MaxAlternatives {
		d.Alternatives = d.Alternatives[:MaxAlternatives]
	}

	for i := range d.Evidence {
		src := EvidenceSource(strings.ToUpper(string(d.Evidence[i].Source)))
		if src != EvidenceManual {
			src = EvidenceGeneral
		}
		d.Evidence[i].Source = src
	}
	if len(d.Evidence) > MaxEvidence {
		d.Evidence = d.Evidence[:MaxEvidence]
	}

	for i := range d.FollowUpQuestions {
		q := &d.FollowUpQuestions[i]
		q.Kind = QuestionKind(strings.ToLower(strings.TrimSpace(string(q.Kind))))
	}
	if len(d.FollowUpQuestions) == 0 {
		d.NeedsFollowUp = false
	}

	d.DetectedBrand = strings.TrimSpace(d.DetectedBrand)
	d.DetectedModel = strings.TrimSpace(d.DetectedModel)
	d.DetectedErrorCode = strings.TrimSpace(d.DetectedErrorCode)
}

// Validate checks a normalized diagnosis.
func (d Diagnosis) Validate() error {
	if strings.TrimSpace(d.Appliance) == "" {
		return fmt.Errorf("%w: appliance is empty", ErrMalformedDiagnosis)
	}
	if strings.TrimSpace(d.Issue) == "" {
		return fmt.Errorf("%w: issue is empty", ErrMalformedDiagnosis)
	}
	if !d.SafetyLevel.Valid() {
		return fmt.Errorf("%w: unknown safety level %q", ErrMalformedDiagnosis, d.SafetyLevel)
	}
	if d.SafetyLevel == SafetyHigh && !d.StopAndCallService {
		return fmt.Errorf("%w: HIGH safety without stopAndCallService", ErrMalformedDiagnosis)
	}
	if len(d.Steps) == 0 && !d.StopAndCallService {
		return fmt.Errorf("%w: no repair steps", ErrMalformedDiagnosis)
	}
	for i, s := range d.Steps {
		if s.Ordinal != i+1 {
			return fmt.Errorf("%w: step %d has ordinal %d", ErrMalformedDiagnosis, i+1, s.Ordinal)
		}
	}
	if !d.NeedsFollowUp {
		return nil
	}
	seen := make(map[string]struct{}, len(d.FollowUpQuestions))
	for _, q := range d.FollowUpQuestions {
		if strings.TrimSpace(q.ID) == "" {
			return fmt.Errorf("%w: follow-up question without id", ErrMalformedDiagnosis)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate follow-up question %q", ErrMalformedDiagnosis, q.ID)
		}
		seen[q.ID] = struct{}{}
		if !q.Kind.Valid() {
			return fmt.Errorf("%w: question %q has kind %q", ErrMalformedDiagnosis, q.ID, q.Kind)
		}
	}
	return nil
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
