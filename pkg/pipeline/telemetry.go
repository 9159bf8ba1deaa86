package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Telemetry exports pipeline metrics to Prometheus.
type Telemetry struct {
	StageDuration  *prometheus.HistogramVec
	StageFallbacks *prometheus.CounterVec
	Requests       *prometheus.CounterVec
}

// NewTelemetry creates the collectors and registers them with reg.
func NewTelemetry(reg prometheus.Registerer) *Telemetry {
	factory := promauto.With(reg)
	return &Telemetry{
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lifemate_pipeline_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 20, 45},
			},
			[]string{"stage"},
		),
		StageFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifemate_pipeline_stage_fallbacks_total",
				Help: "Total number of stage fallbacks",
			},
			[]string{"stage"},
		),
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifemate_pipeline_requests_total",
				Help: "Total number of chat requests by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (t *Telemetry) observeStage(name string, elapsed time.Duration, fallback bool) {
	if t == nil {
		return
	}
	t.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if fallback {
		t.StageFallbacks.WithLabelValues(name).Inc()
	}
}

func (t *Telemetry) observeOutcome(outcome string) {
	if t == nil {
		return
	}
	t.Requests.WithLabelValues(outcome).Inc()
}
