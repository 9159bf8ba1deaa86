package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/llm"
	"github.com/lifemate/lifemate-go/pkg/llm/llmtest"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, llm.EstimateTokens(""))
	assert.Equal(t, 0, llm.EstimateTokens("abc"))
	assert.Equal(t, 1, llm.EstimateTokens("abcd"))
	assert.Equal(t, 25, llm.EstimateTokens(strings.Repeat("x", 100)))

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: strings.Repeat("x", 40)},
		{Role: llm.RoleUser, Content: strings.Repeat("y", 8)},
	}
	assert.Equal(t, 12, llm.EstimateMessagesTokens(messages))
}

func TestApplyGenerateOptions(t *testing.T) {
	opts := llm.ApplyGenerateOptions(nil)
	assert.Equal(t, 0.7, opts.Temperature)
	assert.Equal(t, 1000, opts.MaxTokens)
	assert.Equal(t, 1.0, opts.TopP)

	opts = llm.ApplyGenerateOptions([]llm.GenerateOption{
		llm.WithTemperature(0.1),
		llm.WithMaxTokens(50),
		llm.WithTopP(0.9),
		llm.WithStop("\n"),
	})
	assert.Equal(t, 0.1, opts.Temperature)
	assert.Equal(t, 50, opts.MaxTokens)
	assert.Equal(t, 0.9, opts.TopP)
	assert.Equal(t, []string{"\n"}, opts.Stop)
}

func TestNewTokenCounter(t *testing.T) {
	counter, err := llm.NewTokenCounter("")
	require.NoError(t, err)
	assert.Equal(t, 2, counter.Count("12345678"))

	_, err = llm.NewTokenCounter("unknown")
	assert.Error(t, err)
}

func TestRateLimiter_RequestsPerMinute(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := llm.NewRateLimiter(llm.RateLimits{RequestsPerMinute: 2}, llm.WithClock(func() time.Time { return now }))

	require.NoError(t, limiter.Reserve(10))
	require.NoError(t, limiter.Reserve(10))
	err := limiter.Reserve(10)
	assert.True(t, errors.Is(err, llm.ErrRateLimited))

	// A new minute window resets the request counter
	now = now.Add(time.Minute)
	assert.NoError(t, limiter.Reserve(10))
}

func TestRateLimiter_TokensPerMinuteAndDay(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := llm.NewRateLimiter(
		llm.RateLimits{TokensPerMinute: 100, TokensPerDay: 150},
		llm.WithClock(func() time.Time { return now }),
	)

	require.NoError(t, limiter.Reserve(90))
	assert.ErrorIs(t, limiter.Reserve(20), llm.ErrRateLimited)

	now = now.Add(2 * time.Minute)
	require.NoError(t, limiter.Reserve(50))
	assert.ErrorIs(t, limiter.Reserve(20), llm.ErrRateLimited, "daily ceiling reached")

	_, _, dayRequests, dayTokens := limiter.Usage()
	assert.Equal(t, 2, dayRequests)
	assert.Equal(t, 140, dayTokens)
}

func TestWithRateLimit_RejectsBeforeCalling(t *testing.T) {
	fake := llmtest.New("first", "second")
	limiter := llm.NewRateLimiter(llm.RateLimits{RequestsPerMinute: 1})
	provider := llm.WithRateLimit(fake, limiter)

	ctx := context.Background()
	text, err := provider.Generate(ctx, "hello", llm.WithMaxTokens(10))
	require.NoError(t, err)
	assert.Equal(t, "first", text)

	_, err = provider.Generate(ctx, "hello again", llm.WithMaxTokens(10))
	assert.ErrorIs(t, err, llm.ErrRateLimited)
	assert.Equal(t, 1, fake.CallCount(), "rejected call must not reach the provider")
}

func TestWithRateLimit_NilLimiter(t *testing.T) {
	fake := llmtest.New("ok")
	assert.Same(t, fake, llm.WithRateLimit(fake, nil))
}
