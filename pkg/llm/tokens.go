package llm

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// EstimateTokens is the character-count token heuristic used for budgets and metrics.
//
// It returns len(text)/4, counting bytes.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// EstimateMessagesTokens sums EstimateTokens over message contents.
func EstimateMessagesTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content)
	}
	return total
}

// TokenCounter counts tokens for rate-limit accounting.
type TokenCounter interface {
	Count(text string) int
}

// HeuristicCounter counts tokens with EstimateTokens.
type HeuristicCounter struct{}

// Count implements TokenCounter.
func (HeuristicCounter) Count(text string) int {
	return EstimateTokens(text)
}

// TiktokenCounter counts tokens with a BPE codec.
type TiktokenCounter struct {
	codec tokenizer.Codec
}

// NewTiktokenCounter creates a counter backed by the cl100k_base encoding.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("NewTiktokenCounter: %w", err)
	}
	return &TiktokenCounter{codec: codec}, nil
}

// Count implements TokenCounter. It falls back to EstimateTokens if encoding fails.
func (c *TiktokenCounter) Count(text string) int {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return EstimateTokens(text)
	}
	return len(ids)
}

// NewTokenCounter returns the counter named by kind ("heuristic" or "tiktoken").
func NewTokenCounter(kind string) (TokenCounter, error) {
	switch kind {
	case "", "heuristic":
		return HeuristicCounter{}, nil
	case "tiktoken":
		return NewTiktokenCounter()
	default:
		return nil, fmt.Errorf("NewTokenCounter: unknown counter %q", kind)
	}
}
