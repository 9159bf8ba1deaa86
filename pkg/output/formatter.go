// Package output shortens and cleans the reasoning tier's raw answer.
package output

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

// ErrSkipped is returned by FormatRemote for answers short enough to clean locally.
var ErrSkipped = errors.New("format skipped")

// Config contains formatter settings.
type Config struct {
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64       `yaml:"temperature" json:"temperature"`

	// LocalMaxChars: shorter answers only go through QuickFormat.
	LocalMaxChars int `yaml:"local_max_chars" json:"local_max_chars"`
}

// DefaultConfig returns the default formatter configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:       20 * time.Second,
		MaxTokens:     600,
		Temperature:   0.3,
		LocalMaxChars: 500,
	}
}

var styles = map[intent.Intent]string{
	intent.Task:     "Lead with the most urgent tasks. Group by priority.",
	intent.Study:    "Lead with progress, then concrete next study steps.",
	intent.Expense:  "Lead with totals, then the top categories with amounts.",
	intent.Planning: "Present a time-ordered plan.",
	intent.Memory:   "State the remembered facts plainly.",
	intent.General:  "Answer directly, then add supporting points.",
}

// Formatter formats answers.
type Formatter struct {
	llm    llm.Provider
	config Config
	logger zerolog.Logger
}

// NewFormatter creates a Formatter.
func NewFormatter(provider llm.Provider, cfg Config, logger zerolog.Logger) *Formatter {
	return &Formatter{
		llm:    provider,
		config: cfg,
		logger: logger.With().Str("component", "output").Logger(),
	}
}

// Format returns the cleaned answer. It never fails.
func (f *Formatter) Format(ctx context.Context, raw string, in intent.Intent) string {
	formatted, err := f.FormatRemote(ctx, raw, in)
	if err != nil {
		if !errors.Is(err, ErrSkipped) {
			f.logger.Warn().Err(err).Str("intent", in.String()).Msg("remote formatting failed, using quick format")
		}
		return QuickFormat(raw)
	}
	return formatted
}

// FormatRemote rewrites raw with the formatter tier. Short answers return ErrSkipped.
func (f *Formatter) FormatRemote(ctx context.Context, raw string, in intent.Intent) (string, error) {
	if utf8.RuneCountInString(raw) < f.config.LocalMaxChars {
		return "", ErrSkipped
	}

	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	messages := f.BuildMessages(raw, in)

	f.logger.Debug().Int("est_tokens", llm.EstimateMessagesTokens(messages)).Msg("formatting")

	response, err := f.llm.GenerateWithMessages(ctx, messages,
		llm.WithMaxTokens(f.config.MaxTokens),
		llm.WithTemperature(f.config.Temperature),
	)
	if err != nil {
		return "", fmt.Errorf("format: %w", err)
	}

	formatted := strings.TrimSpace(response)
	if formatted == "" {
		return "", fmt.Errorf("format: %w", llm.ErrEmptyResponse)
	}
	return formatted, nil
}

// BuildMessages returns the conversation sent to the formatter tier.
func (f *Formatter) BuildMessages(raw string, in intent.Intent) []llm.Message {
	style, ok := styles[in]
	if !ok {
		style = styles[intent.General]
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(formatPrompt, style)},
		{Role: llm.RoleUser, Content: raw},
	}
}

const formatPrompt = `Rewrite the assistant answer below for a chat window.

Style: %s

Rules:
- 150 to 300 words.
- Markdown bullet points where there is a list.
- Keep all facts, numbers and dates. Keep non-English text exactly as written; do not translate.
- No filler such as "based on the data" or "I hope this helps".
Output only the rewritten answer.`
