// Package compress shrinks an assembled ContextBundle into a short,
// intent-aware digest for the reasoning tier.
package compress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lifemate/lifemate-go/pkg/assembler"
	"github.com/lifemate/lifemate-go/pkg/intent"
	"github.com/lifemate/lifemate-go/pkg/llm"
)

// ErrSkipped is returned by CompressRemote when the bundle is small enough to
// be compacted locally.
var ErrSkipped = errors.New("compression skipped")

// Config contains compressor settings.
type Config struct {
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64       `yaml:"temperature" json:"temperature"`

	// LocalMaxChars: bundles serializing to fewer characters use Compact.
	LocalMaxChars int `yaml:"local_max_chars" json:"local_max_chars"`
}

// DefaultConfig returns the default compressor configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:       20 * time.Second,
		MaxTokens:     400,
		Temperature:   0.2,
		LocalMaxChars: 800,
	}
}

var focusAreas = map[intent.Intent]string{
	intent.Task:     "today's tasks: counts by priority, what is overdue or urgent, what is done",
	intent.Study:    "study goals: progress, subjects, upcoming target dates",
	intent.Expense:  "spending: totals, top categories, unusual expenses",
	intent.Planning: "time planning: urgent tasks, study sessions, free capacity",
	intent.Memory:   "remembered facts and preferences",
	intent.General:  "a balanced overview of tasks, spending and study",
}

// Compressor compresses bundles.
type Compressor struct {
	llm    llm.Provider
	config Config
	logger zerolog.Logger
}

// NewCompressor creates a Compressor using provider for remote compression.
func NewCompressor(provider llm.Provider, cfg Config, logger zerolog.Logger) *Compressor {
	return &Compressor{
		llm:    provider,
		config: cfg,
		logger: logger.With().Str("component", "compress").Logger(),
	}
}

// Compress returns a digest of bundle. It never fails.
func (c *Compressor) Compress(ctx context.Context, bundle *assembler.ContextBundle, in intent.Intent) string {
	digest, err := c.CompressRemote(ctx, bundle, in)
	if err != nil {
		if !errors.Is(err, ErrSkipped) {
			c.logger.Warn().Err(err).Str("intent", in.String()).Msg("remote compression failed, using compact format")
		}
		return Compact(bundle)
	}
	return digest
}

// CompressRemote summarizes bundle with the fast model tier. Small bundles
// return ErrSkipped.
func (c *Compressor) CompressRemote(ctx context.Context, bundle *assembler.ContextBundle, in intent.Intent) (string, error) {
	serialized, err := bundle.Serialize()
	if err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}
	if len([]rune(serialized)) < c.config.LocalMaxChars {
		return "", ErrSkipped
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	messages := c.BuildMessages(serialized, in)

	c.logger.Debug().Int("est_tokens", llm.EstimateMessagesTokens(messages)).Msg("compressing")

	response, err := c.llm.GenerateWithMessages(ctx, messages,
		llm.WithMaxTokens(c.config.MaxTokens),
		llm.WithTemperature(c.config.Temperature),
	)
	if err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}

	digest := strings.TrimSpace(response)
	if digest == "" {
		return "", fmt.Errorf("compress: %w", llm.ErrEmptyResponse)
	}
	return digest, nil
}

// BuildMessages returns the conversation sent to the fast tier for a
// serialized bundle.
func (c *Compressor) BuildMessages(serialized string, in intent.Intent) []llm.Message {
	focus, ok := focusAreas[in]
	if !ok {
		focus = focusAreas[intent.General]
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(compressPrompt, focus)},
		{Role: llm.RoleUser, Content: serialized},
	}
}

const compressPrompt = `You condense a user's personal data (JSON) into a digest for another assistant.

Focus area: %s

Rules:
- 200 to 400 words, bulleted.
- Aggregate: counts, totals, top items. Do not list every record.
- Keep names, dates and amounts exact. Keep non-English text as written.
- No introduction, no conclusion.`
