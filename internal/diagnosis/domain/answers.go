package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Answer is the reply to one follow-up question: a single value for
// single-choice and free-text questions, a list for multi-choice ones.
type Answer struct {
	Value  string
	Values []string
	multi  bool
}

func SingleAnswer(v string) Answer { return Answer{Value: v} }

func MultiAnswer(vs ...string) Answer { return Answer{Values: vs, multi: true} }

func (a Answer) IsMulti() bool { return a.multi }

// Empty reports whether the answer carries no usable content.
func (a Answer) Empty() bool {
	if a.multi {
		for _, v := range a.Values {
			if strings.TrimSpace(v) != "" {
				return false
			}
		}
		return true
	}
	return strings.TrimSpace(a.Value) == ""
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.multi {
		vs := a.Values
		if vs == nil {
			vs = []string{}
		}
		return json.Marshal(vs)
	}
	return json.Marshal(a.Value)
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var vs []string
		if err := json.Unmarshal(b, &vs); err != nil {
			return fmt.Errorf("answer list: %w", err)
		}
		*a = Answer{Values: vs, multi: true}
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("answer: %w", err)
	}
	*a = Answer{Value: v}
	return nil
}

// Answers maps question id to the user's answer.
type Answers map[string]Answer

// Missing returns the ids of questions without a usable answer, in
// question order.
func (a Answers) Missing(questions []FollowUpQuestion) []string {
	var missing []string
	for _, q := range questions {
		ans, ok := a[q.ID]
		if !ok || ans.Empty() {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for k, v := range a {
		if v.multi {
			v.Values = cloneSlice(v.Values)
		}
		out[k] = v
	}
	return out
}
