package core

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/lifemate/lifemate-go/pkg/assembler"
	"github.com/lifemate/lifemate-go/pkg/compress"
	"github.com/lifemate/lifemate-go/pkg/domain"
	domainSqlite "github.com/lifemate/lifemate-go/pkg/domain/sqlite"
	"github.com/lifemate/lifemate-go/pkg/embedder/bow"
	"github.com/lifemate/lifemate-go/pkg/intelligence"
	"github.com/lifemate/lifemate-go/pkg/intent"
	"github.com/lifemate/lifemate-go/pkg/llm"
	openaiLLM "github.com/lifemate/lifemate-go/pkg/llm/openai"
	"github.com/lifemate/lifemate-go/pkg/memory"
	"github.com/lifemate/lifemate-go/pkg/output"
	"github.com/lifemate/lifemate-go/pkg/pipeline"
	"github.com/lifemate/lifemate-go/pkg/reasoning"
	"github.com/lifemate/lifemate-go/pkg/rewrite"
	"github.com/lifemate/lifemate-go/pkg/router"
	"github.com/lifemate/lifemate-go/pkg/storage"
	mysqlStore "github.com/lifemate/lifemate-go/pkg/storage/mysql"
	postgresStore "github.com/lifemate/lifemate-go/pkg/storage/postgres"
	sqliteStore "github.com/lifemate/lifemate-go/pkg/storage/sqlite"
)

// Tiers are the four completion providers used by the pipeline.
type Tiers struct {
	// Fast serves intent classification, context compression and insight learning.
	Fast llm.Provider

	// Small serves prompt rewriting.
	Small llm.Provider

	// Reasoning answers the question.
	Reasoning llm.Provider

	// Formatter polishes long answers.
	Formatter llm.Provider
}

func (t Tiers) providers() []llm.Provider {
	return []llm.Provider{t.Fast, t.Small, t.Reasoning, t.Formatter}
}

// Client is the main LifeMate client.
//
// It owns the memory store, the domain source and the model tiers, and answers
// chat requests through the pipeline orchestrator. The client is safe for
// concurrent use.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	resp := client.Chat(ctx, "user_001", "Task gì?", nil)
//	fmt.Println(resp.Response)
type Client struct {
	config *Config
	logger zerolog.Logger

	tiers     Tiers
	memory    *memory.Store
	source    domain.Source
	assembler *assembler.Assembler

	orchestrator *pipeline.Orchestrator

	// closers are released by Close in reverse order.
	closers []io.Closer
}

// ClientOption configures NewClient.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger     *zerolog.Logger
	tiers      *Tiers
	source     domain.Source
	registerer prometheus.Registerer
}

// WithLogger sets the root logger (default NewLogger(cfg.Log)).
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = &logger
	}
}

// WithTiers replaces the configured completion tiers.
func WithTiers(tiers Tiers) ClientOption {
	return func(o *clientOptions) {
		o.tiers = &tiers
	}
}

// WithDomainSource replaces the configured domain source.
func WithDomainSource(source domain.Source) ClientOption {
	return func(o *clientOptions) {
		o.source = source
	}
}

// WithRegisterer exports pipeline telemetry to reg.
func WithRegisterer(reg prometheus.Registerer) ClientOption {
	return func(o *clientOptions) {
		o.registerer = reg
	}
}

// NewClient creates a new LifeMate client.
//
// The client is initialized with:
//   - Memory record storage (SQLite, PostgreSQL, or MySQL)
//   - Domain source (static or SQLite)
//   - Four rate-limited completion tiers
//   - The six-stage answer pipeline
//
// Returns a new Client instance, or an error if initialization fails.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &clientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	logger := NewLogger(cfg.Log)
	if options.logger != nil {
		logger = *options.logger
	}

	c := &Client{
		config: cfg,
		logger: logger,
	}

	if err := c.init(options); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) init(options *clientOptions) error {
	cfg := c.config

	records, err := initStorage(cfg.Storage)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, records)

	c.memory, err = memory.NewStore(records, bow.New(cfg.Storage.EmbeddingDims), cfg.Memory, c.logger)
	if err != nil {
		return NewLifeMateError("NewClient", err)
	}

	c.source = options.source
	if c.source == nil {
		c.source, err = initDomain(cfg.Domain)
		if err != nil {
			return err
		}
		if closer, ok := c.source.(io.Closer); ok {
			c.closers = append(c.closers, closer)
		}
	}

	if options.tiers != nil {
		c.tiers = *options.tiers
	} else {
		c.tiers, err = initTiers(cfg.LLM, c.logger)
		if err != nil {
			return err
		}
		for _, p := range c.tiers.providers() {
			c.closers = append(c.closers, p)
		}
	}

	c.assembler = assembler.New(c.source, c.memory, cfg.Assembler, c.logger)

	var pipelineOpts []pipeline.Option
	if options.registerer != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithTelemetry(pipeline.NewTelemetry(options.registerer)))
	}
	if cfg.Learning.Enabled {
		learner := intelligence.NewInsightExtractor(c.tiers.Fast, c.memory, cfg.Learning, c.logger)
		pipelineOpts = append(pipelineOpts, pipeline.WithLearner(learner))
	}

	c.orchestrator = pipeline.NewOrchestrator(pipeline.Components{
		Classifier: intent.NewClassifier(c.tiers.Fast, cfg.Intent, c.logger),
		Rewriter:   rewrite.NewRewriter(c.tiers.Small, cfg.Rewrite, c.logger),
		Assembler:  c.assembler,
		Compressor: compress.NewCompressor(c.tiers.Fast, cfg.Compress, c.logger),
		Router:     router.New(c.memory, cfg.Router, c.logger),
		Reasoner:   reasoning.NewReasoner(c.tiers.Reasoning, cfg.Reasoning, c.logger),
		Formatter:  output.NewFormatter(c.tiers.Formatter, cfg.Output, c.logger),
	}, cfg.Pipeline, c.logger, pipelineOpts...)

	return nil
}

// initStorage creates the memory record backend named by cfg.Provider.
func initStorage(cfg StorageConfig) (storage.RecordStore, error) {
	var (
		store storage.RecordStore
		err   error
	)

	switch cfg.Provider {
	case "sqlite":
		store, err = sqliteStore.NewClient(&sqliteStore.Config{
			DBPath:         cfg.SQLite.Path,
			CollectionName: cfg.SQLite.Collection,
		})
	case "postgres":
		store, err = postgresStore.NewClient(&postgresStore.Config{
			DSN:            cfg.Postgres.DSN,
			Host:           cfg.Postgres.Host,
			Port:           cfg.Postgres.Port,
			User:           cfg.Postgres.User,
			Password:       cfg.Postgres.Password,
			DBName:         cfg.Postgres.DBName,
			SSLMode:        cfg.Postgres.SSLMode,
			CollectionName: cfg.Postgres.Collection,
			EmbeddingDims:  cfg.EmbeddingDims,
		})
	case "mysql":
		store, err = mysqlStore.NewClient(&mysqlStore.Config{
			DSN:            cfg.MySQL.DSN,
			Host:           cfg.MySQL.Host,
			Port:           cfg.MySQL.Port,
			User:           cfg.MySQL.User,
			Password:       cfg.MySQL.Password,
			DBName:         cfg.MySQL.DBName,
			CollectionName: cfg.MySQL.Collection,
		})
	default:
		return nil, NewLifeMateError("initStorage", fmt.Errorf("%w: unknown storage provider %q", ErrInvalidConfig, cfg.Provider))
	}
	if err != nil {
		return nil, NewLifeMateError("initStorage", fmt.Errorf("%w: %w", ErrConnectionFailed, err))
	}
	return store, nil
}

// initDomain creates the domain source named by cfg.Provider.
func initDomain(cfg DomainConfig) (domain.Source, error) {
	switch cfg.Provider {
	case "static":
		return domain.NewStaticSource(nil), nil
	case "sqlite":
		source, err := domainSqlite.NewSource(&domainSqlite.Config{DBPath: cfg.SQLitePath})
		if err != nil {
			return nil, NewLifeMateError("initDomain", fmt.Errorf("%w: %w", ErrConnectionFailed, err))
		}
		return source, nil
	default:
		return nil, NewLifeMateError("initDomain", fmt.Errorf("%w: unknown domain provider %q", ErrInvalidConfig, cfg.Provider))
	}
}

// initTiers creates one rate-limited completion client per tier.
func initTiers(cfg LLMConfig, logger zerolog.Logger) (Tiers, error) {
	counter, err := llm.NewTokenCounter(cfg.TokenCounter)
	if err != nil {
		return Tiers{}, NewLifeMateError("initTiers", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}

	build := func(name string, tier TierConfig) (llm.Provider, error) {
		apiKey := tier.APIKey
		if apiKey == "" {
			apiKey = cfg.APIKey
		}
		baseURL := tier.BaseURL
		if baseURL == "" {
			baseURL = cfg.BaseURL
		}

		client, err := openaiLLM.NewClient(logger, &openaiLLM.Config{
			APIKey:  apiKey,
			Model:   tier.Model,
			BaseURL: baseURL,
			Tier:    name,
		})
		if err != nil {
			return nil, NewLifeMateError("initTiers", fmt.Errorf("%w: %w", ErrLLMOperation, err))
		}
		limiter := llm.NewRateLimiter(tier.Limits, llm.WithTokenCounter(counter))
		return llm.WithRateLimit(client, limiter), nil
	}

	var tiers Tiers
	if tiers.Fast, err = build("fast", cfg.Fast); err != nil {
		return Tiers{}, err
	}
	if tiers.Small, err = build("small", cfg.Small); err != nil {
		return Tiers{}, err
	}
	if tiers.Reasoning, err = build("reasoning", cfg.Reasoning); err != nil {
		return Tiers{}, err
	}
	if tiers.Formatter, err = build("formatter", cfg.Formatter); err != nil {
		return Tiers{}, err
	}
	return tiers, nil
}

// Chat answers message for userID. history holds prior turns, oldest first.
// It never fails; see pipeline.Orchestrator.Chat.
func (c *Client) Chat(ctx context.Context, userID, message string, history []llm.Message) *pipeline.ChatResponse {
	return c.orchestrator.Chat(ctx, userID, message, history)
}

// DailySummary returns today's completed tasks and spending for userID.
func (c *Client) DailySummary(ctx context.Context, userID string) *assembler.DailySummary {
	return c.assembler.BuildDailySummary(ctx, userID)
}

// Memory returns the memory store.
func (c *Client) Memory() *memory.Store {
	return c.memory
}

// Source returns the domain source.
func (c *Client) Source() domain.Source {
	return c.source
}

// Config returns the client configuration.
func (c *Client) Config() *Config {
	return c.config
}

// NewJanitor creates a cleanup scheduler for the memory store using the
// configured schedule and threshold.
func (c *Client) NewJanitor(opts ...memory.JanitorOption) (*memory.Janitor, error) {
	j, err := memory.NewJanitor(c.memory, c.config.Memory.CleanupSchedule, c.config.Memory.CleanupDays, c.logger, opts...)
	if err != nil {
		return nil, NewLifeMateError("NewJanitor", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	return j, nil
}

// Wait blocks until insight learning started by earlier Chat calls has finished.
func (c *Client) Wait() {
	if c.orchestrator != nil {
		c.orchestrator.Wait()
	}
}

// Close waits for background learning, then releases storage connections and
// providers.
func (c *Client) Close() error {
	c.Wait()

	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
