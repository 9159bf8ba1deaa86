// Package reasoning sends the final prompt to the highest-capacity model tier.
//
// It is the one stage without a local fallback: its errors propagate to the
// orchestrator.
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lifemate/lifemate-go/pkg/llm"
)

// ErrReasoningFailed wraps every error returned by Ask.
var ErrReasoningFailed = errors.New("reasoning failed")

// Config contains reasoning settings.
type Config struct {
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64       `yaml:"temperature" json:"temperature"`

	// HistoryTurns is the number of most recent history turns sent.
	HistoryTurns int `yaml:"history_turns" json:"history_turns"`

	// InputBudget is the estimated input-token budget checked by IsWithinBudget.
	InputBudget int `yaml:"input_budget" json:"input_budget"`
}

// DefaultConfig returns the default reasoning configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      45 * time.Second,
		MaxTokens:    1536,
		Temperature:  0.7,
		HistoryTurns: 3,
		InputBudget:  900,
	}
}

// Reasoner answers prompts with the reasoning tier.
type Reasoner struct {
	llm    llm.Provider
	config Config
	logger zerolog.Logger
}

// NewReasoner creates a Reasoner.
func NewReasoner(provider llm.Provider, cfg Config, logger zerolog.Logger) *Reasoner {
	return &Reasoner{
		llm:    provider,
		config: cfg,
		logger: logger.With().Str("component", "reasoning").Logger(),
	}
}

// BuildMessages returns the messages sent for prompt: the system prompt with
// context, the last HistoryTurns turns oldest-first, then prompt.
func (r *Reasoner) BuildMessages(prompt, compressedContext string, history []llm.Message) []llm.Message {
	if n := r.config.HistoryTurns; len(history) > n {
		history = history[len(history)-n:]
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: systemPrompt + "\n\n# User context\n" + compressedContext,
	})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
	return messages
}

// Ask answers prompt given the compressed context and prior turns.
func (r *Reasoner) Ask(ctx context.Context, prompt, compressedContext string, history []llm.Message) (string, error) {
	messages := r.BuildMessages(prompt, compressedContext, history)

	estimate := llm.EstimateMessagesTokens(messages)
	event := r.logger.Debug()
	if !r.IsWithinBudget(estimate) {
		event = r.logger.Warn()
	}
	event.Int("est_tokens", estimate).Int("budget", r.config.InputBudget).Msg("sending reasoning request")

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	response, err := r.llm.GenerateWithMessages(ctx, messages,
		llm.WithMaxTokens(r.config.MaxTokens),
		llm.WithTemperature(r.config.Temperature),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReasoningFailed, err)
	}

	answer := strings.TrimSpace(response)
	if answer == "" {
		return "", fmt.Errorf("%w: %w", ErrReasoningFailed, llm.ErrEmptyResponse)
	}
	return answer, nil
}

// IsWithinBudget reports whether an estimated input size fits the budget.
func (r *Reasoner) IsWithinBudget(estimate int) bool {
	return estimate <= r.config.InputBudget
}

const systemPrompt = `You are LifeMate, a personal assistant for tasks, spending and study.
Answer using the user context below. Be specific: cite task names, amounts and dates from it.
If the context does not contain the answer, say so briefly and suggest what to record.
Reply in the language of the user's message.`
