package reasoning_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/llm"
	"github.com/lifemate/lifemate-go/pkg/llm/llmtest"
	"github.com/lifemate/lifemate-go/pkg/reasoning"
)

func history(n int) []llm.Message {
	out := make([]llm.Message, n)
	for i := range out {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		out[i] = llm.Message{Role: role, Content: string(rune('a' + i))}
	}
	return out
}

func TestAsk_BuildsMessages(t *testing.T) {
	provider := llmtest.New("  You have 2 tasks.  ")
	r := reasoning.NewReasoner(provider, reasoning.DefaultConfig(), zerolog.Nop())

	answer, err := r.Ask(context.Background(), "What should I do?", "Tasks today (2)", history(5))
	require.NoError(t, err)
	assert.Equal(t, "You have 2 tasks.", answer)

	calls := provider.Calls()
	require.Len(t, calls, 1)
	msgs := calls[0].Messages
	require.Len(t, msgs, 5)

	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Tasks today (2)")
	assert.Equal(t, "c", msgs[1].Content)
	assert.Equal(t, "d", msgs[2].Content)
	assert.Equal(t, "e", msgs[3].Content)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "What should I do?"}, msgs[4])
	assert.Equal(t, 1536, calls[0].Options.MaxTokens)
}

func TestAsk_ShortHistoryKept(t *testing.T) {
	r := reasoning.NewReasoner(nil, reasoning.DefaultConfig(), zerolog.Nop())
	msgs := r.BuildMessages("p", "ctx", history(2))
	assert.Len(t, msgs, 4)
}

func TestAsk_ErrorsPropagate(t *testing.T) {
	cause := errors.New("503")
	r := reasoning.NewReasoner(llmtest.Failing(cause), reasoning.DefaultConfig(), zerolog.Nop())

	_, err := r.Ask(context.Background(), "p", "ctx", nil)
	assert.ErrorIs(t, err, reasoning.ErrReasoningFailed)
	assert.ErrorIs(t, err, cause)

	r = reasoning.NewReasoner(llmtest.New("   "), reasoning.DefaultConfig(), zerolog.Nop())
	_, err = r.Ask(context.Background(), "p", "ctx", nil)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestAsk_Timeout(t *testing.T) {
	provider := llmtest.New("late")
	provider.Delay = time.Second

	cfg := reasoning.DefaultConfig()
	cfg.Timeout = 10 * time.Millisecond
	r := reasoning.NewReasoner(provider, cfg, zerolog.Nop())

	_, err := r.Ask(context.Background(), "p", "ctx", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsWithinBudget(t *testing.T) {
	r := reasoning.NewReasoner(nil, reasoning.DefaultConfig(), zerolog.Nop())
	assert.True(t, r.IsWithinBudget(900))
	assert.False(t, r.IsWithinBudget(901))
}
