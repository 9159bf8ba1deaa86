// Package intent classifies a user message into one of six fixed intents.
//
// Classification first asks the fast model tier for a single keyword and falls
// back to an ordered keyword table when the call fails or answers with
// something that is not a known intent.
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lifemate/lifemate-go/pkg/llm"
)

// Intent is a message category.
type Intent string

// Known intents.
const (
	Task     Intent = "task"
	Study    Intent = "study"
	Expense  Intent = "expense"
	Planning Intent = "planning"
	Memory   Intent = "memory"
	General  Intent = "general"
)

// All lists every intent.
var All = []Intent{Task, Study, Expense, Planning, Memory, General}

// ErrUnknownIntent is returned when the model answers with something that is not an intent.
var ErrUnknownIntent = errors.New("unknown intent")

// Parse returns the intent named by s, ignoring case, surrounding space and punctuation.
func Parse(s string) (Intent, bool) {
	s = strings.ToLower(strings.Trim(strings.TrimSpace(s), " .,:;!\"'`*"))
	for _, in := range All {
		if string(in) == s {
			return in, true
		}
	}
	return General, false
}

// String implements fmt.Stringer.
func (i Intent) String() string {
	return string(i)
}

// KeywordRule maps keywords to an intent.
type KeywordRule struct {
	Intent   Intent   `yaml:"intent" json:"intent"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Config holds classifier settings.
type Config struct {
	// Timeout bounds the remote call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// MaxTokens caps the remote answer.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`

	// Temperature of the remote call.
	Temperature float64 `yaml:"temperature" json:"temperature"`

	// Rules are checked in order; the first rule with a matching keyword wins.
	Rules []KeywordRule `yaml:"rules" json:"rules"`
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:     10 * time.Second,
		MaxTokens:   50,
		Temperature: 0.1,
		Rules: []KeywordRule{
			{Intent: Task, Keywords: []string{"task", "todo", "to-do", "deadline", "việc", "công việc", "nhiệm vụ"}},
			{Intent: Study, Keywords: []string{"study", "learn", "exam", "course", "homework", "học", "ôn thi", "bài tập"}},
			{Intent: Expense, Keywords: []string{"expense", "spend", "spent", "money", "budget", "cost", "chi tiêu", "tiền", "ngân sách"}},
			{Intent: Planning, Keywords: []string{"plan", "schedule", "week", "tomorrow", "kế hoạch", "lịch", "tuần"}},
			{Intent: Memory, Keywords: []string{"remember", "recall", "memory", "nhớ", "ghi nhớ"}},
		},
	}
}

// Classifier maps messages to intents.
type Classifier struct {
	llm    llm.Provider
	config Config
	logger zerolog.Logger
}

// NewClassifier creates a Classifier using provider for remote classification.
func NewClassifier(provider llm.Provider, cfg Config, logger zerolog.Logger) *Classifier {
	return &Classifier{
		llm:    provider,
		config: cfg,
		logger: logger.With().Str("component", "intent").Logger(),
	}
}

// Classify returns the intent of message. It always returns a valid intent.
func (c *Classifier) Classify(ctx context.Context, message string) Intent {
	in, err := c.ClassifyRemote(ctx, message)
	if err != nil {
		c.logger.Warn().Err(err).Msg("remote classification failed, using keywords")
		return c.FallbackClassify(message)
	}
	return in
}

// ClassifyRemote asks the model for the intent of message.
func (c *Classifier) ClassifyRemote(ctx context.Context, message string) (Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	messages := c.BuildMessages(message)

	c.logger.Debug().Int("est_tokens", llm.EstimateMessagesTokens(messages)).Msg("classifying")

	response, err := c.llm.GenerateWithMessages(ctx, messages,
		llm.WithMaxTokens(c.config.MaxTokens),
		llm.WithTemperature(c.config.Temperature),
	)
	if err != nil {
		return General, fmt.Errorf("classify: %w", err)
	}

	in, ok := Parse(firstWord(response))
	if !ok {
		return General, fmt.Errorf("classify: %w: %q", ErrUnknownIntent, response)
	}
	return in, nil
}

// BuildMessages returns the conversation sent to the fast tier.
func (c *Classifier) BuildMessages(message string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: message},
	}
}

// FallbackClassify matches message against the keyword rules.
func (c *Classifier) FallbackClassify(message string) Intent {
	lower := strings.ToLower(message)
	for _, rule := range c.config.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Intent
			}
		}
	}
	return General
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

const systemPrompt = `You classify messages sent to a personal life assistant.
Answer with exactly one word from this list:
task - to-do items, deadlines, what to do today
study - learning, courses, exams, study goals
expense - spending, money, budgets
planning - schedules, plans for the day or week
memory - things the user asked to remember or recall
general - anything else

Examples:
"What do I have to do today?" -> task
"Hôm nay tôi tiêu bao nhiêu tiền?" -> expense
"How is my IELTS progress?" -> study
"Plan my week" -> planning
"What did I tell you about my diet?" -> memory
"Hello!" -> general`
