package ai

import (
	"time"

	"go.uber.org/atomic"
)

// Metrics tracks collaborator call metrics.
type Metrics struct {
	rounds       *atomic.Int64
	roundErrors  *atomic.Int64
	roundLatency *atomic.Int64 // total latency in nanoseconds
	chatStreams  *atomic.Int64
	chatErrors   *atomic.Int64
	lookups      *atomic.Int64
	lookupErrors *atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{
		rounds:       atomic.NewInt64(0),
		roundErrors:  atomic.NewInt64(0),
		roundLatency: atomic.NewInt64(0),
		chatStreams:  atomic.NewInt64(0),
		chatErrors:   atomic.NewInt64(0),
		lookups:      atomic.NewInt64(0),
		lookupErrors: atomic.NewInt64(0),
	}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Rounds           int64   `json:"rounds"`
	RoundErrors      int64   `json:"roundErrors"`
	AvgRoundLatencyM float64 `json:"avgRoundLatencyMs"`
	ChatStreams      int64   `json:"chatStreams"`
	ChatErrors       int64   `json:"chatErrors"`
	Lookups          int64   `json:"lookups"`
	LookupErrors     int64   `json:"lookupErrors"`
}

func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Rounds:       m.rounds.Load(),
		RoundErrors:  m.roundErrors.Load(),
		ChatStreams:  m.chatStreams.Load(),
		ChatErrors:   m.chatErrors.Load(),
		Lookups:      m.lookups.Load(),
		LookupErrors: m.lookupErrors.Load(),
	}
	if s.Rounds > 0 {
		s.AvgRoundLatencyM = float64(m.roundLatency.Load()) / float64(s.Rounds) / 1e6
	}
	return s
}

func (m *Metrics) recordRound(d time.Duration, err error) {
	m.rounds.Inc()
	m.roundLatency.Add(d.Nanoseconds())
	if err != nil {
		m.roundErrors.Inc()
	}
}

func (m *Metrics) recordChat(err error) {
	m.chatStreams.Inc()
	if err != nil {
		m.chatErrors.Inc()
	}
}

func (m *Metrics) recordLookup(err error) {
	m.lookups.Inc()
	if err != nil {
		m.lookupErrors.Inc()
	}
}
