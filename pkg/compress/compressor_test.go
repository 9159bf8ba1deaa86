package compress_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/assembler"
	"github.com/lifemate/lifemate-go/pkg/compress"
	"github.com/lifemate/lifemate-go/pkg/domain"
	"github.com/lifemate/lifemate-go/pkg/intent"
	"github.com/lifemate/lifemate-go/pkg/llm/llmtest"
)

func smallBundle() *assembler.ContextBundle {
	return &assembler.ContextBundle{
		Tasks: []domain.Task{
			{Title: "Pay rent", Priority: domain.PriorityHigh, Status: domain.StatusTodo},
			{Title: "Call mom", Priority: domain.PriorityLow, Status: domain.StatusDone},
		},
		Expenses: []domain.Expense{
			{Amount: 10, Category: "food"},
			{Amount: 5, Category: "food"},
			{Amount: 20, Category: "transport"},
			{Amount: 1, Category: "misc"},
			{Amount: 2, Category: "books"},
		},
		StudyGoals: []domain.StudyGoal{
			{Title: "IELTS", Subject: "English", Progress: 40},
		},
	}
}

func largeBundle() *assembler.ContextBundle {
	b := smallBundle()
	for i := 0; i < 30; i++ {
		b.Tasks = append(b.Tasks, domain.Task{Title: fmt.Sprintf("Task number %d", i), Priority: domain.PriorityMedium, Status: domain.StatusTodo})
	}
	return b
}

func TestCompact(t *testing.T) {
	out := compress.Compact(smallBundle())

	assert.Contains(t, out, "Tasks today (2): high 1, low 1")
	assert.Contains(t, out, "- [high] Pay rent (todo)")
	assert.Contains(t, out, "- transport: 20.00")
	assert.Contains(t, out, "- food: 15.00")
	assert.Contains(t, out, "- books: 2.00")
	assert.NotContains(t, out, "misc")
	assert.Contains(t, out, "- IELTS (English): 40%")

	assert.Equal(t, "No personal data available.", compress.Compact(&assembler.ContextBundle{}))
}

func TestCompress_SmallBundleStaysLocal(t *testing.T) {
	provider := llmtest.New("remote digest")
	c := compress.NewCompressor(provider, compress.DefaultConfig(), zerolog.Nop())

	out := c.Compress(context.Background(), smallBundle(), intent.Task)

	assert.Equal(t, compress.Compact(smallBundle()), out)
	assert.Equal(t, 0, provider.CallCount())
}

func TestCompress_LargeBundleRemote(t *testing.T) {
	provider := llmtest.New("- 32 tasks, 1 high priority")
	c := compress.NewCompressor(provider, compress.DefaultConfig(), zerolog.Nop())

	out := c.Compress(context.Background(), largeBundle(), intent.Task)

	assert.Equal(t, "- 32 tasks, 1 high priority", out)
	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 400, calls[0].Options.MaxTokens)
	assert.Contains(t, calls[0].Messages[0].Content, "today's tasks")
}

func TestCompress_RemoteFailureFallsBack(t *testing.T) {
	c := compress.NewCompressor(llmtest.Failing(errors.New("timeout")), compress.DefaultConfig(), zerolog.Nop())

	bundle := largeBundle()
	out := c.Compress(context.Background(), bundle, intent.Expense)

	assert.Equal(t, compress.Compact(bundle), out)
	assert.True(t, strings.HasPrefix(out, "Tasks today (32)"))
}
