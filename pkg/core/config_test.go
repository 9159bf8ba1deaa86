package core_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/core"
	"github.com/lifemate/lifemate-go/pkg/intent"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := core.DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, 100, cfg.Storage.EmbeddingDims)
	assert.Equal(t, 10*time.Second, cfg.Intent.Timeout)
	assert.Equal(t, 45*time.Second, cfg.Reasoning.Timeout)
	assert.Equal(t, 3500, cfg.Pipeline.BaselineTokens)
	assert.False(t, cfg.Learning.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.Config)
	}{
		{"missing llm provider", func(c *core.Config) { c.LLM.Provider = "" }},
		{"missing tier model", func(c *core.Config) { c.LLM.Reasoning.Model = "" }},
		{"negative limit", func(c *core.Config) { c.LLM.Fast.Limits.TokensPerMinute = -1 }},
		{"unknown storage", func(c *core.Config) { c.Storage.Provider = "redis" }},
		{"missing sqlite path", func(c *core.Config) { c.Storage.SQLite.Path = "" }},
		{"unknown domain", func(c *core.Config) { c.Domain.Provider = "notion" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := core.DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrInvalidConfig))

			var lmErr *core.LifeMateError
			require.True(t, errors.As(err, &lmErr))
			assert.Equal(t, "Validate", lmErr.Op)
		})
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lifemate.yaml")
	content := `
llm:
  provider: openai
  api_key: sk-test
  reasoning:
    model: gpt-4o
    limits:
      requests_per_minute: 5
storage:
  provider: sqlite
  sqlite:
    path: /tmp/lifemate-test.db
intent:
  timeout: 3s
router:
  routes:
    general:
      categories: [insights]
      limit: 4
memory:
  reset_relevance_on_upsert: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := core.LoadConfigFromYAML(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 5, cfg.LLM.Reasoning.Limits.RequestsPerMinute)
	assert.Equal(t, "/tmp/lifemate-test.db", cfg.Storage.SQLite.Path)
	assert.Equal(t, 3*time.Second, cfg.Intent.Timeout)
	assert.True(t, cfg.Memory.ResetRelevanceOnUpsert)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, 50, cfg.Intent.MaxTokens)
	assert.Equal(t, 4, cfg.Router.Routes[intent.General].Limit)
	assert.Equal(t, 2, cfg.Router.Routes[intent.Task].Limit)

	_, err = core.LoadConfigFromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "deepseek")
	t.Setenv("LLM_API_KEY", "sk-env")
	t.Setenv("LLM_REASONING_MODEL", "deepseek-reasoner")
	t.Setenv("DATABASE_PROVIDER", "mysql")
	t.Setenv("MYSQL_PORT", "3307")
	t.Setenv("DOMAIN_PROVIDER", "sqlite")
	t.Setenv("MEMORY_CLEANUP_DAYS", "60")
	t.Setenv("LEARNING_ENABLED", "true")

	cfg, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "https://api.deepseek.com", cfg.LLM.BaseURL)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Fast.Model)
	assert.Equal(t, "deepseek-reasoner", cfg.LLM.Reasoning.Model)
	assert.Equal(t, "mysql", cfg.Storage.Provider)
	assert.Equal(t, 3307, cfg.Storage.MySQL.Port)
	assert.Equal(t, "sqlite", cfg.Domain.Provider)
	assert.Equal(t, 60, cfg.Memory.CleanupDays)
	assert.True(t, cfg.Learning.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv_InvalidNumber(t *testing.T) {
	t.Setenv("POSTGRES_PORT", "five")

	_, err := core.LoadConfigFromEnv()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}

func TestNewLifeMateError(t *testing.T) {
	assert.Nil(t, core.NewLifeMateError("Op", nil))

	err := core.NewLifeMateError("Store", core.ErrStorageOperation)
	assert.EqualError(t, err, "lifemate: Store: storage operation failed")
	assert.True(t, errors.Is(err, core.ErrStorageOperation))
}
