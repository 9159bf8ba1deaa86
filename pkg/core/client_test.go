package core_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/core"
	"github.com/lifemate/lifemate-go/pkg/domain"
	"github.com/lifemate/lifemate-go/pkg/intelligence"
	"github.com/lifemate/lifemate-go/pkg/intent"
	"github.com/lifemate/lifemate-go/pkg/llm"
	"github.com/lifemate/lifemate-go/pkg/llm/llmtest"
	"github.com/lifemate/lifemate-go/pkg/memory"
	"github.com/lifemate/lifemate-go/pkg/pipeline"
	"github.com/lifemate/lifemate-go/pkg/storage"
)

func answering(answer string) *llmtest.Provider {
	return &llmtest.Provider{
		Respond: func([]llm.Message, *llm.GenerateOptions) (string, error) {
			return answer, nil
		},
	}
}

func setupClientTest(t *testing.T, mutate func(*core.Config), tiers core.Tiers) (*core.Client, *domain.StaticSource, func()) {
	cfg := core.DefaultConfig()
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "lifemate.db")
	if mutate != nil {
		mutate(cfg)
	}

	source := domain.NewStaticSource(nil)
	client, err := core.NewClient(cfg,
		core.WithLogger(zerolog.Nop()),
		core.WithTiers(tiers),
		core.WithDomainSource(source),
		core.WithRegisterer(prometheus.NewRegistry()),
	)
	require.NoError(t, err)

	cleanup := func() {
		_ = client.Close()
	}
	return client, source, cleanup
}

func TestClient_Chat(t *testing.T) {
	client, source, cleanup := setupClientTest(t, nil, core.Tiers{
		Fast:      answering("task"),
		Small:     llmtest.New(),
		Reasoning: answering("Finish the slides first, then pay rent."),
		Formatter: llmtest.New(),
	})
	defer cleanup()

	today := domain.Today(time.Now())
	source.AddTask("u1", domain.Task{ID: 1, Title: "Finish slides", Priority: domain.PriorityHigh, Status: domain.StatusTodo, DueOn: today})

	resp := client.Chat(context.Background(), "u1", "Task gì?", nil)

	assert.Equal(t, "Finish the slides first, then pay rent.", resp.Response)
	assert.Equal(t, intent.Task, resp.Intent)
	assert.False(t, resp.Metrics.Fallback)
	assert.Len(t, resp.Metrics.Order, 6)

	summary := client.DailySummary(context.Background(), "u1")
	assert.Equal(t, today, summary.Date)
}

func TestClient_LearnsInsights(t *testing.T) {
	fast := &llmtest.Provider{
		Respond: func(messages []llm.Message, _ *llm.GenerateOptions) (string, error) {
			if strings.Contains(messages[0].Content, "Personal Information Organizer") {
				return `{"facts": ["Prefers studying in the morning"]}`, nil
			}
			return "study", nil
		},
	}
	client, _, cleanup := setupClientTest(t, func(c *core.Config) {
		c.Learning.Enabled = true
	}, core.Tiers{
		Fast:      fast,
		Small:     llmtest.New(),
		Reasoning: answering("Morning sessions work best for you."),
		Formatter: llmtest.New(),
	})
	defer cleanup()

	ctx := context.Background()
	client.Chat(ctx, "u1", "I always study best in the morning", nil)
	client.Wait()

	rec, err := client.Memory().Get(ctx, intelligence.InsightKey("Prefers studying in the morning"))
	require.NoError(t, err)
	assert.Equal(t, intelligence.InsightCategory, rec.Category)
}

func TestClient_Janitor(t *testing.T) {
	client, _, cleanup := setupClientTest(t, nil, core.Tiers{
		Fast: llmtest.New(), Small: llmtest.New(), Reasoning: llmtest.New(), Formatter: llmtest.New(),
	})
	defer cleanup()

	ctx := context.Background()
	_, err := client.Memory().Store(ctx, memory.StoreInput{Key: "k", Value: "fresh", Category: "general"})
	require.NoError(t, err)

	j, err := client.NewJanitor()
	require.NoError(t, err)
	deleted, err := j.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestNewClient_InvalidConfig(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Storage.Provider = "redis"

	_, err := core.NewClient(cfg, core.WithLogger(zerolog.Nop()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}

func TestNewClient_DefaultTiersAndDomain(t *testing.T) {
	dir := t.TempDir()
	cfg := core.DefaultConfig()
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.TokenCounter = "heuristic"
	cfg.Storage.SQLite.Path = filepath.Join(dir, "memory.db")
	cfg.Domain.Provider = "sqlite"
	cfg.Domain.SQLitePath = filepath.Join(dir, "domain.db")

	client, err := core.NewClient(cfg, core.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	assert.NotNil(t, client.Source())
	require.NoError(t, client.Close())
}

func TestAsyncClient_ChatAsync(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "lifemate.db")

	client, err := core.NewAsyncClient(cfg,
		core.WithLogger(zerolog.Nop()),
		core.WithTiers(core.Tiers{
			Fast:      answering("general"),
			Small:     answering("Summarise my day"),
			Reasoning: answering("All good."),
			Formatter: llmtest.New(),
		}),
	)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	channels := make([]<-chan *pipeline.ChatResponse, 0, 5)
	for i := 0; i < 5; i++ {
		channels = append(channels, client.ChatAsync(ctx, "u1", "hello there, how are you", nil))
	}
	client.Wait()

	for _, ch := range channels {
		resp, ok := <-ch
		require.True(t, ok)
		assert.Equal(t, "All good.", resp.Response)
		assert.False(t, resp.Metrics.Error)
	}
}

func TestClient_MemoryOperations(t *testing.T) {
	client, _, cleanup := setupClientTest(t, nil, core.Tiers{
		Fast: llmtest.New(), Small: llmtest.New(), Reasoning: llmtest.New(), Formatter: llmtest.New(),
	})
	defer cleanup()

	ctx := context.Background()
	rec, err := client.StoreMemory(ctx, memory.StoreInput{Key: "drink", Value: "green tea", Category: "preferences"})
	require.NoError(t, err)

	results, err := client.SearchMemories(ctx, "green tea", 5, []string{"preferences"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "drink", results[0].Key)

	relevance, err := client.BoostMemory(ctx, rec.ID, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, relevance, 1e-9)

	listed, err := client.ListMemories(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	deleted, err := client.CleanMemories(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	require.NoError(t, client.DeleteMemory(ctx, "drink"))
}

func TestClient_MemoryOperationErrors(t *testing.T) {
	client, _, cleanup := setupClientTest(t, nil, core.Tiers{
		Fast: llmtest.New(), Small: llmtest.New(), Reasoning: llmtest.New(), Formatter: llmtest.New(),
	})
	defer cleanup()

	ctx := context.Background()

	_, err := client.StoreMemory(ctx, memory.StoreInput{Key: "  ", Value: "x"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = client.SearchMemories(ctx, "", 5, nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = client.ListMemories(ctx, "", -1)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = client.BoostMemory(ctx, 0, 1)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = client.BoostMemory(ctx, 42, 1)
	assert.ErrorIs(t, err, core.ErrStorageOperation)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = client.DeleteMemory(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrStorageOperation)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var lmErr *core.LifeMateError
	require.ErrorAs(t, err, &lmErr)
	assert.Equal(t, "DeleteMemory", lmErr.Op)
}
