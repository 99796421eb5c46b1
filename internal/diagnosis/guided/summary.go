// Package guided builds the structured text description produced by the
// step-by-step symptom form.
package guided

import (
	"errors"
	"fmt"
	"strings"
)

var ErrApplianceRequired = errors.New("guided form needs an appliance")

const (
	PatternContinuous   = "연속적"
	PatternIntermittent = "간헐적"
	DefaultIntensity    = "보통"
)

type Category struct {
	ID     string   `json:"id"`
	Label  string   `json:"label"`
	Sounds []string `json:"sounds"`
}

var categories = []Category{
	{ID: "ac", Label: "에어컨", Sounds: []string{"틱틱", "뚜둑", "쉬익", "졸졸", "휘오오", "웅~", "칼칼"}},
	{ID: "washer", Label: "세탁기/건조기", Sounds: []string{"쿵쿵", "덜컹", "끼익", "드르륵", "위잉", "탁탁", "철컥"}},
	{ID: "fridge", Label: "냉장고", Sounds: []string{"딱딱", "뚝뚝", "웅~", "윙~", "달그락", "졸졸"}},
	{ID: "dishwasher", Label: "식기세척기", Sounds: []string{"위잉", "쏴아", "덜컹", "삐~", "드르륵"}},
	{ID: "vacuum", Label: "청소기", Sounds: []string{"위잉", "드르륵", "파지직", "푸슉", "끼익"}},
	{ID: "other", Label: "기타 가전", Sounds: []string{"삐~", "퍽!", "파지직", "웅~", "끼익", "드르륵", "덜컹"}},
}

// Catalog lists the appliance categories with their sound palettes.
func Catalog() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		c.Sounds = append([]string(nil), c.Sounds...)
		out[i] = c
	}
	return out
}

// Form is the guided symptom form.
type Form struct {
	Appliance string   `json:"appliance"`
	Sounds    []string `json:"sounds"`
	Pattern   string   `json:"pattern"`
	Intensity string   `json:"intensity"`
	Vibration bool     `json:"vibration"`
	When      string   `json:"when"`
	ErrorCode string   `json:"errorCode"`
	Extra     string   `json:"extra"`
}

// Summary renders the form as the diagnosis text description.
func (f Form) Summary() (string, error) {
	if strings.TrimSpace(f.Appliance) == "" {
		return "", ErrApplianceRequired
	}

	pattern := f.Pattern
	if pattern != PatternIntermittent {
		pattern = PatternContinuous
	}
	intensity := orDefault(f.Intensity, DefaultIntensity)
	vibration := "없음"
	if f.Vibration {
		vibration = "있음"
	}
	sounds := "정보 없음"
	if len(f.Sounds) > 0 {
		sounds = strings.Join(f.Sounds, ", ")
	}

	var b strings.Builder
	b.WriteString("[가이드 진단 요청]\n")
	fmt.Fprintf(&b, "- 가전제품: %s\n", label(f.Appliance))
	fmt.Fprintf(&b, "- 소음 종류: %s\n", sounds)
	fmt.Fprintf(&b, "- 소음 패턴: %s / 강도: %s / 진동: %s\n", pattern, intensity, vibration)
	fmt.Fprintf(&b, "- 발생 시점: %s\n", orDefault(f.When, "정보 없음"))
	fmt.Fprintf(&b, "- 에러 코드: %s\n", orDefault(f.ErrorCode, "없음"))
	fmt.Fprintf(&b, "- 기타 증상: %s", orDefault(f.Extra, "없음"))
	return b.String(), nil
}

func label(id string) string {
	for _, c := range categories {
		if c.ID == id {
			return c.Label
		}
	}
	return "기타"
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}
