package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lifemate/lifemate-go/pkg/assembler"
	"github.com/lifemate/lifemate-go/pkg/intent"
	"github.com/lifemate/lifemate-go/pkg/llm"
	"github.com/lifemate/lifemate-go/pkg/reasoning"
)

// StageFallbackPath is the metric name of the whole-pipeline fallback call.
const StageFallbackPath = "fallback"

// DefaultApology is returned when no answer could be produced.
const DefaultApology = "Sorry, I couldn't process your request right now. Please try again in a moment."

// ChatResponse is the answer to one chat request.
type ChatResponse struct {
	Response string        `json:"response"`
	Metrics  *Metrics      `json:"metrics"`
	Intent   intent.Intent `json:"intent"`
}

// Learner stores insights from finished conversations.
type Learner interface {
	Enabled() bool
	Learn(ctx context.Context, userID string, messages []llm.Message) (int, error)
}

// Config contains orchestrator settings.
type Config struct {
	BaselineTokens int    `yaml:"baseline_tokens" json:"baseline_tokens"`
	Apology        string `yaml:"apology" json:"apology"`

	// LearnTimeout bounds background insight learning after a request returns.
	LearnTimeout time.Duration `yaml:"learn_timeout" json:"learn_timeout"`
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		BaselineTokens: DefaultBaselineTokens,
		Apology:        DefaultApology,
		LearnTimeout:   30 * time.Second,
	}
}

// Orchestrator runs the stages of one chat request.
type Orchestrator struct {
	stages    []Stage
	assembler *assembler.Assembler
	reasoner  *reasoning.Reasoner
	learner   Learner
	telemetry *Telemetry
	config    Config
	logger    zerolog.Logger
	now       func() time.Time

	learning sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStages replaces the default stages.
func WithStages(stages ...Stage) Option {
	return func(o *Orchestrator) {
		o.stages = stages
	}
}

// WithTelemetry exports stage metrics to Prometheus.
func WithTelemetry(t *Telemetry) Option {
	return func(o *Orchestrator) {
		o.telemetry = t
	}
}

// WithLearner stores insights after each answered request when the learner is enabled.
func WithLearner(l Learner) Option {
	return func(o *Orchestrator) {
		o.learner = l
	}
}

// WithClock overrides the clock used for elapsed times.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates an Orchestrator over the default stages of c. The
// assembler and reasoner of c also serve the whole-pipeline fallback.
func NewOrchestrator(c Components, cfg Config, logger zerolog.Logger, opts ...Option) *Orchestrator {
	if cfg.BaselineTokens <= 0 {
		cfg.BaselineTokens = DefaultBaselineTokens
	}
	if cfg.Apology == "" {
		cfg.Apology = DefaultApology
	}
	if cfg.LearnTimeout <= 0 {
		cfg.LearnTimeout = DefaultConfig().LearnTimeout
	}

	o := &Orchestrator{
		stages:    DefaultStages(c),
		assembler: c.Assembler,
		reasoner:  c.Reasoner,
		config:    cfg,
		logger:    logger.With().Str("component", "pipeline").Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Chat answers message for userID. history holds prior turns, oldest first.
// It never fails: errors surface as metrics flags and, at worst, the apology.
func (o *Orchestrator) Chat(ctx context.Context, userID, message string, history []llm.Message) (resp *ChatResponse) {
	metrics := newMetrics(o.config.BaselineTokens, o.now())
	logger := o.logger.With().Str("request_id", metrics.RequestID).Str("user_id", userID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("pipeline panicked")
			metrics.Error = true
			metrics.finish(o.now())
			o.telemetry.observeOutcome(OutcomeError)
			resp = &ChatResponse{Response: o.config.Apology, Metrics: metrics, Intent: intent.General}
		}
	}()

	state := &State{
		UserID:  userID,
		Message: message,
		History: history,
		Intent:  intent.General,
	}

	if err := o.runStages(ctx, state, metrics, logger); err != nil {
		logger.Warn().Err(err).Msg("pipeline failed, answering from uncompressed context")
		return o.fallback(ctx, state, metrics, logger)
	}

	metrics.finish(o.now())
	o.telemetry.observeOutcome(OutcomeOK)
	logger.Info().
		Str("intent", state.Intent.String()).
		Int64("elapsed_ms", metrics.TotalElapsedMs).
		Int("est_tokens", metrics.TotalTokens).
		Float64("savings_percent", metrics.SavingsPercent).
		Msg("chat answered")

	o.learnInBackground(ctx, state, logger)

	return &ChatResponse{Response: state.Response, Metrics: metrics, Intent: state.Intent}
}

// runStages runs every stage, falling back per stage. It returns an error
// when a stage has no fallback or panics.
func (o *Orchestrator) runStages(ctx context.Context, s *State, m *Metrics, logger zerolog.Logger) error {
	for _, stage := range o.stages {
		start := o.now()
		res, fellBack, err := runStage(ctx, stage, s, logger)
		elapsed := o.now().Sub(start)

		o.telemetry.observeStage(stage.Name(), elapsed, fellBack)
		if err != nil {
			m.record(stage.Name(), Result{Summary: "failed"}, elapsed, true)
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		m.record(stage.Name(), res, elapsed, fellBack)
	}
	return nil
}

// runStage runs one stage and its fallback. A panic in either becomes an error.
func runStage(ctx context.Context, stage Stage, s *State, logger zerolog.Logger) (res Result, fellBack bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("stage", stage.Name()).Msg("stage panicked")
			err = fmt.Errorf("stage %s panicked: %v", stage.Name(), r)
		}
	}()

	res, err = stage.Run(ctx, s)
	if err != nil {
		logger.Warn().Err(err).Str("stage", stage.Name()).Msg("stage failed, using fallback")
		fellBack = true
		res, err = stage.Fallback(ctx, s, err)
	}
	return res, fellBack, err
}

// fallback answers the raw message from the full serialized context with one
// reasoning call.
func (o *Orchestrator) fallback(ctx context.Context, s *State, m *Metrics, logger zerolog.Logger) *ChatResponse {
	m.Fallback = true
	start := o.now()

	answer, tokens, err := o.answerUncompressed(ctx, s)
	elapsed := o.now().Sub(start)
	o.telemetry.observeStage(StageFallbackPath, elapsed, false)

	if err != nil {
		logger.Error().Err(err).Msg("fallback answer failed")
		m.record(StageFallbackPath, Result{Summary: "failed"}, elapsed, true)
		m.Error = true
		m.finish(o.now())
		o.telemetry.observeOutcome(OutcomeError)
		return &ChatResponse{Response: o.config.Apology, Metrics: m, Intent: intent.General}
	}

	m.record(StageFallbackPath, Result{Summary: fmt.Sprintf("%d chars", len(answer)), Tokens: tokens}, elapsed, true)
	m.finish(o.now())
	o.telemetry.observeOutcome(OutcomeFallback)
	return &ChatResponse{Response: answer, Metrics: m, Intent: intent.General}
}

func (o *Orchestrator) answerUncompressed(ctx context.Context, s *State) (string, int, error) {
	if o.assembler == nil || o.reasoner == nil {
		return "", 0, fmt.Errorf("fallback: %w", reasoning.ErrReasoningFailed)
	}

	bundle := s.Bundle
	if bundle == nil {
		bundle = o.assembler.Build(ctx, s.UserID, s.Message)
	}
	serialized, err := bundle.Serialize()
	if err != nil {
		return "", 0, fmt.Errorf("fallback: %w", err)
	}

	answer, err := o.reasoner.Ask(ctx, s.Message, serialized, s.History)
	if err != nil {
		return "", 0, fmt.Errorf("fallback: %w", err)
	}

	tokens := llm.EstimateMessagesTokens(o.reasoner.BuildMessages(s.Message, serialized, s.History)) +
		llm.EstimateTokens(answer)
	return answer, tokens, nil
}

// learnInBackground stores insights from the finished exchange without
// delaying the response. The work outlives ctx's cancellation but not
// Config.LearnTimeout.
func (o *Orchestrator) learnInBackground(ctx context.Context, s *State, logger zerolog.Logger) {
	if o.learner == nil || !o.learner.Enabled() {
		return
	}

	messages := append(append([]llm.Message(nil), s.History...),
		llm.Message{Role: llm.RoleUser, Content: s.Message},
		llm.Message{Role: llm.RoleAssistant, Content: s.Response},
	)
	learnCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.config.LearnTimeout)

	o.learning.Add(1)
	go func() {
		defer o.learning.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Interface("panic", r).Msg("insight learning panicked")
			}
		}()

		n, err := o.learner.Learn(learnCtx, s.UserID, messages)
		if err != nil {
			logger.Warn().Err(err).Msg("insight learning failed")
			return
		}
		logger.Debug().Int("insights", n).Msg("insights stored")
	}()
}

// Wait blocks until background insight learning has finished.
func (o *Orchestrator) Wait() {
	o.learning.Wait()
}
