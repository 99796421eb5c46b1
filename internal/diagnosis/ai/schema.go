package ai

import "google.golang.org/genai"

// RequiredFields must be present in every diagnosis payload.
var RequiredFields = []string{
	"appliance", "issue", "probability", "description", "manualReference",
	"needsFollowUp", "steps", "safetyLevel", "safetyWarnings",
	"stopAndCallService", "evidence",
}

func str() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

func num() *genai.Schema { return &genai.Schema{Type: genai.TypeNumber} }

func strList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: str()}
}

// DiagnosisSchema is the strict output schema for every diagnosis round.
func DiagnosisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"appliance":          str(),
			"issue":              str(),
			"probability":        num(),
			"description":        str(),
			"manualReference":    str(),
			"needsFollowUp":      {Type: genai.TypeBoolean},
			"safetyLevel":        {Type: genai.TypeString, Enum: []string{"LOW", "MEDIUM", "HIGH"}},
			"safetyWarnings":     strList(),
			"stopAndCallService": {Type: genai.TypeBoolean},
			"detectedBrand":      str(),
			"detectedModel":      str(),
			"detectedErrorCode":  str(),
			"imageFindings":      strList(),
			"beforeAfterNote":    {Type: genai.TypeString, Description: "이전 진단 대비 변화된 점 요약"},
			"evidence": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"source":  {Type: genai.TypeString, Enum: []string{"MANUAL", "GENERAL"}},
						"title":   str(),
						"snippet": str(),
					},
					Required: []string{"source", "title", "snippet"},
				},
			},
			"followUpQuestions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":       str(),
						"question": str(),
						"type":     {Type: genai.TypeString, Enum: []string{"single", "multi", "text"}},
						"options":  strList(),
					},
					Required: []string{"id", "question", "type"},
				},
			},
			"alternatives": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"issue":              str(),
						"probability":        num(),
						"howToDifferentiate": str(),
					},
				},
			},
			"steps": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"step":        num(),
						"instruction": str(),
						"detail":      str(),
					},
				},
			},
		},
		Required: RequiredFields,
	}
}
