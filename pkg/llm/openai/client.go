// Package openai provides an llm.Provider over any OpenAI-compatible chat-completion API.
//
// Groq, DeepSeek and OpenAI all speak this protocol, so one client type serves every
// model tier; the tier is selected by Model and BaseURL.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/lifemate/lifemate-go/pkg/llm"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Client is an OpenAI-compatible completion client bound to one model.
type Client struct {
	client *openai.Client
	model  string
	tier   string
	logger zerolog.Logger
}

// Config is the configuration for one completion tier.
// APIKey: API key (required by hosted services)
// Model: Model name to use
// BaseURL: API base URL, defaults to the OpenAI official address
// Tier: Tier name used in logs and errors ("fast", "reasoning", ...)
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Tier    string
}

// NewClient creates a new completion client.
//
// Args:
//   - logger: Parent logger
//   - cfg: Tier configuration containing APIKey, Model, and BaseURL
//
// Returns:
//   - *Client: client instance
//   - error: Returns an error if the model is missing
func NewClient(logger zerolog.Logger, cfg *Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("NewClient: model is required for tier %q", cfg.Tier)
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		tier:   cfg.Tier,
		logger: logger.With().Str("component", "llm").Str("tier", cfg.Tier).Str("model", cfg.Model).Logger(),
	}, nil
}

// Generate generates text based on the prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}
	return c.GenerateWithMessages(ctx, messages, opts...)
}

// GenerateWithMessages generates text using message history.
//
// Args:
//   - ctx: Context for controlling the request lifecycle; its deadline is the stage timeout
//   - messages: Message history list, oldest first
//   - opts: Optional generation parameters (temperature, max_tokens, top_p, etc.)
//
// Returns:
//   - string: Generated text content, trimmed
//   - error: transport/API error, or llm.ErrEmptyResponse when no text came back
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		TopP:        float32(options.TopP),
		Stop:        options.Stop,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", c.tier, err)
	}

	c.logger.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("completion usage")

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s completion: no choices: %w", c.tier, llm.ErrEmptyResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%s completion: %w", c.tier, llm.ErrEmptyResponse)
	}
	return content, nil
}

// Close is a no-op; the SDK client holds no resources.
func (c *Client) Close() error {
	return nil
}
