package chat

import "strings"

const (
	ApologyText    = "죄송합니다. 오류가 발생했습니다."
	EmptyReplyText = "연결에 문제가 발생했습니다. 다시 시도해 주세요."
)

// Accumulator composes one model reply from streamed fragments.
type Accumulator struct {
	b      strings.Builder
	failed bool
}

func (a *Accumulator) Append(fragment string) {
	if a.failed {
		return
	}
	a.b.WriteString(fragment)
}

// Fail discards what was received and switches the reply to the apology.
func (a *Accumulator) Fail() {
	a.failed = true
	a.b.Reset()
}

func (a *Accumulator) Failed() bool { return a.failed }

// Text is the reply to show: the apology after a failure, a reconnect hint
// when nothing usable arrived, otherwise the concatenated fragments.
func (a *Accumulator) Text() string {
	if a.failed {
		return ApologyText
	}
	if strings.TrimSpace(a.b.String()) == "" {
		return EmptyReplyText
	}
	return a.b.String()
}
