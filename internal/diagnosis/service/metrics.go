package service

import "go.uber.org/atomic"

// Metrics tracks session outcomes.
type Metrics struct {
	sessionsCreated *atomic.Int64
	rounds          *atomic.Int64
	roundFailures   *atomic.Int64
	finalized       *atomic.Int64
	rechecks        *atomic.Int64
	historyFailures *atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{
		sessionsCreated: atomic.NewInt64(0),
		rounds:          atomic.NewInt64(0),
		roundFailures:   atomic.NewInt64(0),
		finalized:       atomic.NewInt64(0),
		rechecks:        atomic.NewInt64(0),
		historyFailures: atomic.NewInt64(0),
	}
}

type MetricsSnapshot struct {
	SessionsCreated int64 `json:"sessionsCreated"`
	Rounds          int64 `json:"rounds"`
	RoundFailures   int64 `json:"roundFailures"`
	Finalized       int64 `json:"finalized"`
	Rechecks        int64 `json:"rechecks"`
	HistoryFailures int64 `json:"historyFailures"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		SessionsCreated: m.sessionsCreated.Load(),
		Rounds:          m.rounds.Load(),
		RoundFailures:   m.roundFailures.Load(),
		Finalized:       m.finalized.Load(),
		Rechecks:        m.rechecks.Load(),
		HistoryFailures: m.historyFailures.Load(),
	}
}

// RoundFailureRate returns the failed share of rounds as a percentage.
func (s MetricsSnapshot) RoundFailureRate() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.RoundFailures) / float64(s.Rounds) * 100
}

func (m *Metrics) recordSession()        { m.sessionsCreated.Inc() }
func (m *Metrics) recordHistoryFailure() { m.historyFailures.Inc() }

func (m *Metrics) recordRound(err error) {
	m.rounds.Inc()
	if err != nil {
		m.roundFailures.Inc()
	}
}

func (m *Metrics) recordFinalized(recheck bool) {
	m.finalized.Inc()
	if recheck {
		m.rechecks.Inc()
	}
}
