package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lifemate/lifemate-go/pkg/assembler"
	"github.com/lifemate/lifemate-go/pkg/compress"
	"github.com/lifemate/lifemate-go/pkg/embedder/bow"
	"github.com/lifemate/lifemate-go/pkg/intelligence"
	"github.com/lifemate/lifemate-go/pkg/intent"
	"github.com/lifemate/lifemate-go/pkg/llm"
	"github.com/lifemate/lifemate-go/pkg/memory"
	"github.com/lifemate/lifemate-go/pkg/output"
	"github.com/lifemate/lifemate-go/pkg/pipeline"
	"github.com/lifemate/lifemate-go/pkg/reasoning"
	"github.com/lifemate/lifemate-go/pkg/rewrite"
	"github.com/lifemate/lifemate-go/pkg/router"
)

// Config contains the complete configuration of a LifeMate client.
//
// It includes settings for:
//   - LLM provider and its four model tiers
//   - Memory record storage
//   - Domain data source
//   - Every pipeline stage
//
// Example:
//
//	config := core.DefaultConfig()
//	config.LLM.APIKey = "gsk-..."
//	config.Storage.SQLite.Path = "./lifemate.db"
//	client, err := core.NewClient(config)
type Config struct {
	LLM     LLMConfig     `yaml:"llm" json:"llm"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Domain  DomainConfig  `yaml:"domain" json:"domain"`
	Log     LogConfig     `yaml:"log" json:"log"`

	Memory    memory.Config       `yaml:"memory" json:"memory"`
	Assembler assembler.Config    `yaml:"assembler" json:"assembler"`
	Intent    intent.Config       `yaml:"intent" json:"intent"`
	Rewrite   rewrite.Config      `yaml:"rewrite" json:"rewrite"`
	Compress  compress.Config     `yaml:"compress" json:"compress"`
	Router    router.Config       `yaml:"router" json:"router"`
	Reasoning reasoning.Config    `yaml:"reasoning" json:"reasoning"`
	Output    output.Config       `yaml:"output" json:"output"`
	Pipeline  pipeline.Config     `yaml:"pipeline" json:"pipeline"`
	Learning  intelligence.Config `yaml:"learning" json:"learning"`
}

// LLMConfig contains configuration for the completion service.
//
// Supported providers: groq, openai, deepseek. All speak the OpenAI
// chat-completion protocol; the provider only selects defaults.
type LLMConfig struct {
	// Provider is the completion service name.
	Provider string `yaml:"provider" json:"provider"`

	// APIKey is the API key shared by every tier unless a tier overrides it.
	APIKey string `yaml:"api_key" json:"api_key"`

	// BaseURL is the API base URL (optional, uses provider default if empty).
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// TokenCounter selects rate-limit accounting: "heuristic" or "tiktoken".
	TokenCounter string `yaml:"token_counter" json:"token_counter"`

	Fast      TierConfig `yaml:"fast" json:"fast"`
	Small     TierConfig `yaml:"small" json:"small"`
	Reasoning TierConfig `yaml:"reasoning" json:"reasoning"`
	Formatter TierConfig `yaml:"formatter" json:"formatter"`
}

// TierConfig is one model tier: a model and its published ceilings.
type TierConfig struct {
	Model string `yaml:"model" json:"model"`

	// APIKey and BaseURL override the provider-wide values when set.
	APIKey  string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	Limits llm.RateLimits `yaml:"limits" json:"limits"`
}

// StorageConfig selects and configures the memory record backend.
//
// Supported providers: sqlite, postgres, mysql
type StorageConfig struct {
	Provider string `yaml:"provider" json:"provider"`

	// EmbeddingDims is the pseudo-embedding length (default 100).
	EmbeddingDims int `yaml:"embedding_dims" json:"embedding_dims"`

	SQLite   SQLiteConfig   `yaml:"sqlite" json:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
	MySQL    MySQLConfig    `yaml:"mysql" json:"mysql"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	Path       string `yaml:"path" json:"path"`
	Collection string `yaml:"collection" json:"collection"`
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	DSN        string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Host       string `yaml:"host" json:"host"`
	Port       int    `yaml:"port" json:"port"`
	User       string `yaml:"user" json:"user"`
	Password   string `yaml:"password" json:"password"`
	DBName     string `yaml:"db_name" json:"db_name"`
	SSLMode    string `yaml:"ssl_mode" json:"ssl_mode"`
	Collection string `yaml:"collection" json:"collection"`
}

// MySQLConfig configures the MySQL backend (also OceanBase in MySQL mode).
type MySQLConfig struct {
	DSN        string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Host       string `yaml:"host" json:"host"`
	Port       int    `yaml:"port" json:"port"`
	User       string `yaml:"user" json:"user"`
	Password   string `yaml:"password" json:"password"`
	DBName     string `yaml:"db_name" json:"db_name"`
	Collection string `yaml:"collection" json:"collection"`
}

// DomainConfig selects the source of tasks, expenses and study goals.
//
// Supported providers: static (in-memory, empty), sqlite
type DomainConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

// providerDefaults are the base URL and tier models of a completion service.
type providerDefaults struct {
	baseURL                           string
	fast, small, reasoning, formatter string
}

var knownProviders = map[string]providerDefaults{
	"groq": {
		baseURL:   "https://api.groq.com/openai/v1",
		fast:      "llama-3.1-8b-instant",
		small:     "llama-3.1-8b-instant",
		reasoning: "llama-3.3-70b-versatile",
		formatter: "llama-3.1-8b-instant",
	},
	"openai": {
		fast:      "gpt-4o-mini",
		small:     "gpt-4o-mini",
		reasoning: "gpt-4o",
		formatter: "gpt-4o-mini",
	},
	"deepseek": {
		baseURL:   "https://api.deepseek.com",
		fast:      "deepseek-chat",
		small:     "deepseek-chat",
		reasoning: "deepseek-chat",
		formatter: "deepseek-chat",
	},
}

// DefaultConfig returns a complete configuration for the groq provider with
// SQLite storage and an empty static domain source.
func DefaultConfig() *Config {
	defaults := knownProviders["groq"]
	small := llm.RateLimits{RequestsPerMinute: 30, TokensPerMinute: 6000, RequestsPerDay: 14400, TokensPerDay: 500000}

	return &Config{
		LLM: LLMConfig{
			Provider:     "groq",
			BaseURL:      defaults.baseURL,
			TokenCounter: "heuristic",
			Fast:         TierConfig{Model: defaults.fast, Limits: small},
			Small:        TierConfig{Model: defaults.small, Limits: small},
			Reasoning: TierConfig{
				Model:  defaults.reasoning,
				Limits: llm.RateLimits{RequestsPerMinute: 30, TokensPerMinute: 12000, RequestsPerDay: 1000, TokensPerDay: 100000},
			},
			Formatter: TierConfig{Model: defaults.formatter, Limits: small},
		},
		Storage: StorageConfig{
			Provider:      "sqlite",
			EmbeddingDims: bow.DefaultDimensions,
			SQLite:        SQLiteConfig{Path: "./lifemate.db", Collection: "memories"},
			Postgres:      PostgresConfig{Host: "localhost", Port: 5432, User: "postgres", DBName: "lifemate", SSLMode: "disable", Collection: "memories"},
			MySQL:         MySQLConfig{Host: "127.0.0.1", Port: 3306, User: "root", DBName: "lifemate", Collection: "memories"},
		},
		Domain: DomainConfig{Provider: "static", SQLitePath: "./lifemate_domain.db"},
		Log:    LogConfig{Level: "info", Format: "json"},

		Memory:    memory.DefaultConfig(),
		Assembler: assembler.DefaultConfig(),
		Intent:    intent.DefaultConfig(),
		Rewrite:   rewrite.DefaultConfig(),
		Compress:  compress.DefaultConfig(),
		Router:    router.DefaultConfig(),
		Reasoning: reasoning.DefaultConfig(),
		Output:    output.DefaultConfig(),
		Pipeline:  pipeline.DefaultConfig(),
		Learning:  intelligence.DefaultConfig(),
	}
}

// LoadConfigFromEnv loads configuration from environment variables on top of
// DefaultConfig.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Applies the supported variables
//
// Supported environment variables:
//   - LLM_PROVIDER, LLM_API_KEY, LLM_BASE_URL, LLM_TOKEN_COUNTER
//   - LLM_FAST_MODEL, LLM_SMALL_MODEL, LLM_REASONING_MODEL, LLM_FORMATTER_MODEL
//   - DATABASE_PROVIDER (sqlite, postgres, mysql)
//   - SQLITE_PATH, SQLITE_COLLECTION
//   - POSTGRES_DSN, POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_SSLMODE, POSTGRES_COLLECTION
//   - MYSQL_DSN, MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE,
//     MYSQL_COLLECTION
//   - DOMAIN_PROVIDER (static, sqlite), DOMAIN_SQLITE_PATH
//   - LOG_LEVEL, LOG_FORMAT
//   - MEMORY_CLEANUP_SCHEDULE, MEMORY_CLEANUP_DAYS
//   - LEARNING_ENABLED
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		cfg.LLM.Provider = provider
		if defaults, ok := knownProviders[provider]; ok {
			cfg.LLM.BaseURL = defaults.baseURL
			cfg.LLM.Fast.Model = defaults.fast
			cfg.LLM.Small.Model = defaults.small
			cfg.LLM.Reasoning.Model = defaults.reasoning
			cfg.LLM.Formatter.Model = defaults.formatter
		}
	}
	cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	cfg.LLM.BaseURL = getEnvOrDefault("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.TokenCounter = getEnvOrDefault("LLM_TOKEN_COUNTER", cfg.LLM.TokenCounter)
	cfg.LLM.Fast.Model = getEnvOrDefault("LLM_FAST_MODEL", cfg.LLM.Fast.Model)
	cfg.LLM.Small.Model = getEnvOrDefault("LLM_SMALL_MODEL", cfg.LLM.Small.Model)
	cfg.LLM.Reasoning.Model = getEnvOrDefault("LLM_REASONING_MODEL", cfg.LLM.Reasoning.Model)
	cfg.LLM.Formatter.Model = getEnvOrDefault("LLM_FORMATTER_MODEL", cfg.LLM.Formatter.Model)

	var err error
	cfg.Storage.Provider = getEnvOrDefault("DATABASE_PROVIDER", cfg.Storage.Provider)

	cfg.Storage.SQLite.Path = getEnvOrDefault("SQLITE_PATH", cfg.Storage.SQLite.Path)
	cfg.Storage.SQLite.Collection = getEnvOrDefault("SQLITE_COLLECTION", cfg.Storage.SQLite.Collection)

	pg := &cfg.Storage.Postgres
	pg.DSN = os.Getenv("POSTGRES_DSN")
	pg.Host = getEnvOrDefault("POSTGRES_HOST", pg.Host)
	if pg.Port, err = getEnvInt("POSTGRES_PORT", pg.Port); err != nil {
		return nil, err
	}
	pg.User = getEnvOrDefault("POSTGRES_USER", pg.User)
	pg.Password = os.Getenv("POSTGRES_PASSWORD")
	pg.DBName = getEnvOrDefault("POSTGRES_DATABASE", pg.DBName)
	pg.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", pg.SSLMode)
	pg.Collection = getEnvOrDefault("POSTGRES_COLLECTION", pg.Collection)

	my := &cfg.Storage.MySQL
	my.DSN = os.Getenv("MYSQL_DSN")
	my.Host = getEnvOrDefault("MYSQL_HOST", my.Host)
	if my.Port, err = getEnvInt("MYSQL_PORT", my.Port); err != nil {
		return nil, err
	}
	my.User = getEnvOrDefault("MYSQL_USER", my.User)
	my.Password = os.Getenv("MYSQL_PASSWORD")
	my.DBName = getEnvOrDefault("MYSQL_DATABASE", my.DBName)
	my.Collection = getEnvOrDefault("MYSQL_COLLECTION", my.Collection)

	cfg.Domain.Provider = getEnvOrDefault("DOMAIN_PROVIDER", cfg.Domain.Provider)
	cfg.Domain.SQLitePath = getEnvOrDefault("DOMAIN_SQLITE_PATH", cfg.Domain.SQLitePath)

	cfg.Log.Level = getEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnvOrDefault("LOG_FORMAT", cfg.Log.Format)

	cfg.Memory.CleanupSchedule = getEnvOrDefault("MEMORY_CLEANUP_SCHEDULE", cfg.Memory.CleanupSchedule)
	if cfg.Memory.CleanupDays, err = getEnvInt("MEMORY_CLEANUP_DAYS", cfg.Memory.CleanupDays); err != nil {
		return nil, err
	}

	if v := os.Getenv("LEARNING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, NewLifeMateError("LoadConfigFromEnv", fmt.Errorf("%w: LEARNING_ENABLED=%q", ErrInvalidConfig, v))
		}
		cfg.Learning.Enabled = enabled
	}

	return cfg, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromYAML loads configuration from a YAML file. Fields absent from
// the file keep their DefaultConfig values.
func LoadConfigFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewLifeMateError("LoadConfigFromYAML", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, NewLifeMateError("LoadConfigFromYAML", err)
	}
	return cfg, nil
}

// Validate validates the configuration.
//
// Checks that:
//   - the LLM provider is set and every tier has a model
//   - no rate limit is negative (zero disables a limit)
//   - the storage and domain providers are known
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return NewLifeMateError("Validate", fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, args...)...))
	}

	if c.LLM.Provider == "" {
		return invalid("llm provider is required")
	}
	tiers := map[string]TierConfig{
		"fast":      c.LLM.Fast,
		"small":     c.LLM.Small,
		"reasoning": c.LLM.Reasoning,
		"formatter": c.LLM.Formatter,
	}
	for name, tier := range tiers {
		if tier.Model == "" {
			return invalid("%s tier model is required", name)
		}
		l := tier.Limits
		if l.RequestsPerMinute < 0 || l.TokensPerMinute < 0 || l.RequestsPerDay < 0 || l.TokensPerDay < 0 {
			return invalid("%s tier limits must not be negative", name)
		}
	}

	switch c.Storage.Provider {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return invalid("sqlite path is required")
		}
	case "postgres", "mysql":
	default:
		return invalid("unknown storage provider %q", c.Storage.Provider)
	}

	switch c.Domain.Provider {
	case "static":
	case "sqlite":
		if c.Domain.SQLitePath == "" {
			return invalid("domain sqlite path is required")
		}
	default:
		return invalid("unknown domain provider %q", c.Domain.Provider)
	}

	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, NewLifeMateError("LoadConfigFromEnv", fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, value))
	}
	return n, nil
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
