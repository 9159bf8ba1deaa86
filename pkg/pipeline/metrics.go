package pipeline

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// DefaultBaselineTokens is the historical per-request token cost savings are
// measured against.
const DefaultBaselineTokens = 3500

// StageMetric is the record of one stage.
type StageMetric struct {
	Result    string `json:"result"`
	ElapsedMs int64  `json:"elapsed_ms"`
	EstTokens int    `json:"est_tokens"`
	Fallback  bool   `json:"fallback"`
}

// Metrics is the per-request telemetry returned with every answer. It is
// never used for control flow.
type Metrics struct {
	RequestID string `json:"request_id"`

	// Stages maps stage name to its metric. Order lists the names in the order
	// they ran.
	Stages map[string]*StageMetric `json:"stages"`
	Order  []string                `json:"order"`

	TotalElapsedMs int64   `json:"total_elapsed_ms"`
	TotalTokens    int     `json:"total_est_tokens"`
	BaselineTokens int     `json:"baseline_tokens"`
	SavedTokens    int     `json:"saved_tokens"`
	SavingsPercent float64 `json:"savings_percent"`

	// Fallback is set when the whole-pipeline fallback produced the answer.
	Fallback bool `json:"fallback"`

	// Error is set when no answer could be produced.
	Error bool `json:"error"`

	started time.Time
}

func newMetrics(baseline int, now time.Time) *Metrics {
	return &Metrics{
		RequestID:      uuid.NewString(),
		Stages:         make(map[string]*StageMetric),
		BaselineTokens: baseline,
		started:        now,
	}
}

func (m *Metrics) record(name string, res Result, elapsed time.Duration, fallback bool) {
	if _, ok := m.Stages[name]; !ok {
		m.Order = append(m.Order, name)
	}
	m.Stages[name] = &StageMetric{
		Result:    res.Summary,
		ElapsedMs: elapsed.Milliseconds(),
		EstTokens: res.Tokens,
		Fallback:  fallback,
	}
}

// finish computes the totals. Savings are negative when a request cost more
// than the baseline.
func (m *Metrics) finish(now time.Time) {
	m.TotalElapsedMs = now.Sub(m.started).Milliseconds()

	m.TotalTokens = 0
	for _, stage := range m.Stages {
		m.TotalTokens += stage.EstTokens
	}

	m.SavedTokens = m.BaselineTokens - m.TotalTokens
	if m.BaselineTokens > 0 {
		percent := float64(m.SavedTokens) / float64(m.BaselineTokens) * 100
		m.SavingsPercent = math.Round(percent*10) / 10
	}
}
