// Package rewrite turns vague user messages into actionable instructions.
//
// Clear long messages pass through unchanged and everything else is rewritten
// by the small model tier. When the model fails the per-intent template is
// used; very short messages get the bare template.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lifemate/lifemate-go/pkg/intent"
	"github.com/lifemate/lifemate-go/pkg/llm"
)

// Sources of a rewrite result.
const (
	SourceUnchanged = "unchanged"
	SourceRemote    = "remote"
	SourceTemplate  = "template"
)

// ErrSkipped is returned by RewriteRemote for messages that are not sent to the model.
var ErrSkipped = errors.New("rewrite skipped")

// Result contains the result of a rewrite.
type Result struct {
	// Original is the message before rewriting.
	Original string

	// Rewritten is the instruction to use downstream.
	Rewritten string

	// Source is SourceUnchanged, SourceRemote or SourceTemplate.
	Source string
}

// Config contains rewriter settings.
type Config struct {
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64       `yaml:"temperature" json:"temperature"`

	// ClearMinChars: longer messages with a marker are kept as they are.
	ClearMinChars int `yaml:"clear_min_chars" json:"clear_min_chars"`

	// ShortMaxChars: a failed rewrite of a shorter message yields the bare template.
	ShortMaxChars int `yaml:"short_max_chars" json:"short_max_chars"`

	Markers   []string                 `yaml:"markers" json:"markers"`
	Templates map[intent.Intent]string `yaml:"templates" json:"templates"`
}

// DefaultConfig returns the default rewriter configuration.
func DefaultConfig() Config {
	templates := make(map[intent.Intent]string, len(DefaultTemplates))
	for k, v := range DefaultTemplates {
		templates[k] = v
	}
	return Config{
		Timeout:       15 * time.Second,
		MaxTokens:     120,
		Temperature:   0.3,
		ClearMinChars: 50,
		ShortMaxChars: 10,
		Markers:       append([]string(nil), DefaultMarkers...),
		Templates:     templates,
	}
}

// Rewriter rewrites messages.
type Rewriter struct {
	llm    llm.Provider
	config Config
	logger zerolog.Logger
}

// NewRewriter creates a Rewriter using provider for remote rewrites.
func NewRewriter(provider llm.Provider, cfg Config, logger zerolog.Logger) *Rewriter {
	return &Rewriter{
		llm:    provider,
		config: cfg,
		logger: logger.With().Str("component", "rewrite").Logger(),
	}
}

// Rewrite returns an actionable instruction for message. It never fails.
func (r *Rewriter) Rewrite(ctx context.Context, message string, in intent.Intent) *Result {
	if r.IsClear(message) {
		return &Result{Original: message, Rewritten: message, Source: SourceUnchanged}
	}

	rewritten, err := r.RewriteRemote(ctx, message, in)
	if err != nil {
		if !errors.Is(err, ErrSkipped) {
			r.logger.Warn().Err(err).Str("intent", in.String()).Msg("remote rewrite failed, using template")
		}
		return &Result{Original: message, Rewritten: r.Template(message, in), Source: SourceTemplate}
	}
	return &Result{Original: message, Rewritten: rewritten, Source: SourceRemote}
}

// RewriteRemote rewrites message with the small model tier. Clear messages
// return ErrSkipped.
func (r *Rewriter) RewriteRemote(ctx context.Context, message string, in intent.Intent) (string, error) {
	if r.IsClear(message) {
		return "", ErrSkipped
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	messages := r.BuildMessages(message, in)

	r.logger.Debug().Int("est_tokens", llm.EstimateMessagesTokens(messages)).Msg("rewriting")

	response, err := r.llm.GenerateWithMessages(ctx, messages,
		llm.WithMaxTokens(r.config.MaxTokens),
		llm.WithTemperature(r.config.Temperature),
	)
	if err != nil {
		return "", fmt.Errorf("rewrite: %w", err)
	}

	rewritten := strings.Trim(strings.TrimSpace(response), `"`)
	if rewritten == "" {
		return "", fmt.Errorf("rewrite: %w", llm.ErrEmptyResponse)
	}
	return rewritten, nil
}

// BuildMessages returns the conversation sent to the small tier.
func (r *Rewriter) BuildMessages(message string, in intent.Intent) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: buildRewritePrompt(in)},
		{Role: llm.RoleUser, Content: message},
	}
}

// IsClear reports whether message is long enough and already contains an
// imperative marker, so it is used as is.
func (r *Rewriter) IsClear(message string) bool {
	if utf8.RuneCountInString(strings.TrimSpace(message)) <= r.config.ClearMinChars {
		return false
	}
	lower := strings.ToLower(message)
	for _, marker := range r.config.Markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (r *Rewriter) isShort(message string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(message)) < r.config.ShortMaxChars
}

// Template returns the deterministic rewrite of message. Short messages get the
// bare intent template; longer ones keep the original request after it.
func (r *Rewriter) Template(message string, in intent.Intent) string {
	template, ok := r.config.Templates[in]
	if !ok {
		template = r.config.Templates[intent.General]
	}

	trimmed := strings.TrimSpace(message)
	if r.isShort(message) || trimmed == "" {
		return template
	}
	return template + ". Request: " + trimmed
}
