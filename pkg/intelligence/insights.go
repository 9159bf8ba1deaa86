// Package intelligence learns durable insights about the user from finished
// conversations and stores them in the Memory Store.
package intelligence

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lifemate/lifemate-go/pkg/llm"
	"github.com/lifemate/lifemate-go/pkg/memory"
	"github.com/lifemate/lifemate-go/pkg/storage"
)

// InsightCategory is the memory category of learned insights.
const InsightCategory = "insights"

// InsightStore is the subset of memory.Store the extractor writes to.
type InsightStore interface {
	Store(ctx context.Context, in memory.StoreInput) (*storage.Record, error)
}

// Config contains insight learning settings.
type Config struct {
	// Enabled turns learning on. It is off by default.
	Enabled bool `yaml:"enabled" json:"enabled"`

	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens int           `yaml:"max_tokens" json:"max_tokens"`

	// MaxFacts caps the facts stored per conversation.
	MaxFacts int `yaml:"max_facts" json:"max_facts"`

	// CustomPrompt replaces the default extraction prompt when set.
	CustomPrompt string `yaml:"custom_prompt" json:"custom_prompt"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:   15 * time.Second,
		MaxTokens: 300,
		MaxFacts:  5,
	}
}

// InsightExtractor extracts facts from conversations using the LLM.
//
// Facts are self-contained statements about the user's preferences, habits,
// plans and needs. Each fact is stored once under a key derived from its text.
//
// Example usage:
//
//	extractor := NewInsightExtractor(fastTier, memoryStore, cfg, logger)
//	n, err := extractor.Learn(ctx, "user_001", messages)
type InsightExtractor struct {
	// llm is the LLM provider for fact extraction.
	llm llm.Provider

	store  InsightStore
	config Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewInsightExtractor creates a new insight extractor.
//
// Parameters:
//   - provider: LLM provider for fact extraction (required)
//   - store: Memory Store receiving the insights
//   - cfg: Learning configuration
//   - logger: Parent logger
//
// Returns a new InsightExtractor.
func NewInsightExtractor(provider llm.Provider, store InsightStore, cfg Config, logger zerolog.Logger) *InsightExtractor {
	return &InsightExtractor{
		llm:    provider,
		store:  store,
		config: cfg,
		logger: logger.With().Str("component", "insights").Logger(),
		now:    time.Now,
	}
}

// Enabled reports whether learning is turned on.
func (e *InsightExtractor) Enabled() bool {
	return e.config.Enabled
}

// Learn extracts facts from messages and stores them as insights for userID.
// It returns the number of facts stored.
func (e *InsightExtractor) Learn(ctx context.Context, userID string, messages []llm.Message) (int, error) {
	facts, err := e.ExtractFacts(ctx, messages)
	if err != nil {
		return 0, err
	}
	if e.config.MaxFacts > 0 && len(facts) > e.config.MaxFacts {
		facts = facts[:e.config.MaxFacts]
	}

	learnedAt := e.now().UTC().Format(time.RFC3339)
	stored := 0
	for _, fact := range facts {
		_, err := e.store.Store(ctx, memory.StoreInput{
			Key:      InsightKey(fact),
			Value:    fact,
			Category: InsightCategory,
			Content:  fact,
			Metadata: map[string]interface{}{
				"user_id":    userID,
				"source":     "conversation",
				"learned_at": learnedAt,
			},
		})
		if err != nil {
			return stored, fmt.Errorf("failed to store insight: %w", err)
		}
		stored++
	}

	e.logger.Debug().Str("user_id", userID).Int("stored", stored).Msg("insights learned")
	return stored, nil
}

// InsightKey returns the memory key of fact. Facts differing only in case or
// surrounding space share a key.
func InsightKey(fact string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(fact))))
	return "insight:" + hex.EncodeToString(sum[:])
}

// ExtractFacts extracts facts from messages.
//
// The extraction process:
//  1. Renders user and assistant turns as a conversation
//  2. Calls LLM with the fact extraction prompt
//  3. Parses the JSON response into a list of facts
//
// Returns an empty list when the conversation holds nothing worth keeping.
func (e *InsightExtractor) ExtractFacts(ctx context.Context, messages []llm.Message) ([]string, error) {
	conversation := renderConversation(messages)
	if conversation == "" {
		return []string{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	llmMessages := []llm.Message{
		{Role: llm.RoleSystem, Content: e.systemPrompt()},
		{Role: llm.RoleUser, Content: "Input:\n" + conversation},
	}

	response, err := e.llm.GenerateWithMessages(ctx, llmMessages,
		llm.WithMaxTokens(e.config.MaxTokens),
		llm.WithTemperature(0.1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to extract facts: %w", err)
	}

	facts, err := parseFactsResponse(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse facts response: %w", err)
	}
	return facts, nil
}

func renderConversation(messages []llm.Message) string {
	var parts []string
	for _, msg := range messages {
		if msg.Role == llm.RoleSystem || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return strings.Join(parts, "\n")
}

func (e *InsightExtractor) systemPrompt() string {
	if e.config.CustomPrompt != "" {
		return e.config.CustomPrompt
	}

	return fmt.Sprintf(`You are a Personal Information Organizer for a life assistant. Extract lasting facts about the user: preferences, routines, spending habits, study habits, goals, plans and needs.

Rules:
1. Only facts about the user that will still be useful next week. Skip greetings and one-off questions.
2. Self-contained: each fact makes sense on its own.
3. Separate: one fact per item.
4. Preserve the input language.

Examples:
Input: user: Hi.
Output: {"facts" : []}

Input: user: I always study English best in the morning, before work.
Output: {"facts" : ["Studies English best in the morning before work"]}

Input: user: Tôi muốn tiết kiệm 2 triệu mỗi tháng.
Output: {"facts" : ["Muốn tiết kiệm 2 triệu mỗi tháng"]}

- Today: %s
- Return JSON: {"facts": ["fact1", "fact2"]}
- If there are no lasting facts, return an empty list`, e.now().UTC().Format("2006-01-02"))
}

// parseFactsResponse parses the LLM response into facts.
func parseFactsResponse(response string) ([]string, error) {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	response = strings.TrimSpace(response)

	var result struct {
		Facts []interface{} `json:"facts"`
	}
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}

	facts := make([]string, 0, len(result.Facts))
	for _, fact := range result.Facts {
		if s, ok := fact.(string); ok && strings.TrimSpace(s) != "" {
			facts = append(facts, strings.TrimSpace(s))
		}
	}
	return facts, nil
}
