package rewrite_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/intent"
	"github.com/lifemate/lifemate-go/pkg/llm/llmtest"
	"github.com/lifemate/lifemate-go/pkg/rewrite"
)

func TestRewrite_ShortMessageFallsBackToTemplate(t *testing.T) {
	provider := llmtest.Failing(errors.New("down"))
	r := rewrite.NewRewriter(provider, rewrite.DefaultConfig(), zerolog.Nop())

	result := r.Rewrite(context.Background(), "Task gì?", intent.Task)

	assert.Equal(t, "Show tasks for today with priority and status", result.Rewritten)
	assert.Equal(t, rewrite.SourceTemplate, result.Source)
	assert.Equal(t, 1, provider.CallCount())
}

func TestRewrite_ShortMessageRemote(t *testing.T) {
	provider := llmtest.New("Show my tasks for today sorted by priority.")
	r := rewrite.NewRewriter(provider, rewrite.DefaultConfig(), zerolog.Nop())

	result := r.Rewrite(context.Background(), "Task gì?", intent.Task)

	assert.Equal(t, "Show my tasks for today sorted by priority.", result.Rewritten)
	assert.Equal(t, rewrite.SourceRemote, result.Source)

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, r.BuildMessages("Task gì?", intent.Task), calls[0].Messages)
}

func TestRewrite_ClearLongMessageUnchanged(t *testing.T) {
	provider := llmtest.New("should not be used")
	r := rewrite.NewRewriter(provider, rewrite.DefaultConfig(), zerolog.Nop())

	msg := "Please show me every expense I made on food during the last two weeks"
	result := r.Rewrite(context.Background(), msg, intent.Expense)

	assert.Equal(t, msg, result.Rewritten)
	assert.Equal(t, rewrite.SourceUnchanged, result.Source)
	assert.Equal(t, 0, provider.CallCount())
}

func TestRewrite_Remote(t *testing.T) {
	provider := llmtest.New("  \"Summarize my food spending this week.\"  ")
	r := rewrite.NewRewriter(provider, rewrite.DefaultConfig(), zerolog.Nop())

	result := r.Rewrite(context.Background(), "food money this week?", intent.Expense)

	assert.Equal(t, "Summarize my food spending this week.", result.Rewritten)
	assert.Equal(t, rewrite.SourceRemote, result.Source)

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Messages[0].Content, "spending")
	assert.Equal(t, "food money this week?", calls[0].Messages[1].Content)
}

func TestRewrite_RemoteFailureKeepsRequest(t *testing.T) {
	r := rewrite.NewRewriter(llmtest.New("   "), rewrite.DefaultConfig(), zerolog.Nop())

	result := r.Rewrite(context.Background(), "what about my english course", intent.Study)

	assert.Equal(t, rewrite.SourceTemplate, result.Source)
	assert.True(t, strings.HasPrefix(result.Rewritten, rewrite.DefaultTemplates[intent.Study]))
	assert.Contains(t, result.Rewritten, "what about my english course")
}

func TestRewriteRemote_Skipped(t *testing.T) {
	provider := llmtest.New()
	r := rewrite.NewRewriter(provider, rewrite.DefaultConfig(), zerolog.Nop())

	msg := "Please list all of my study goals together with their current progress"
	_, err := r.RewriteRemote(context.Background(), msg, intent.Study)
	assert.ErrorIs(t, err, rewrite.ErrSkipped)
	assert.Equal(t, 0, provider.CallCount())
}

func TestIsClear(t *testing.T) {
	r := rewrite.NewRewriter(nil, rewrite.DefaultConfig(), zerolog.Nop())

	assert.False(t, r.IsClear("show tasks"))
	assert.False(t, r.IsClear(strings.Repeat("a", 60)))
	assert.True(t, r.IsClear("Hãy liệt kê tất cả các công việc quan trọng tôi cần làm trong tuần này"))
}
