// Package router selects which memory categories, and how many memories, an
// intent should pull from the Memory Store.
package router

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lifemate/lifemate-go/pkg/intent"
	"github.com/lifemate/lifemate-go/pkg/storage"
)

// Searcher is the subset of memory.Store the router uses.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, categories []string) ([]*storage.Record, error)
}

// Route is the memory selection of one intent. Empty Categories means all.
type Route struct {
	Categories []string `yaml:"categories" json:"categories"`
	Limit      int      `yaml:"limit" json:"limit"`
}

// Config maps intents to routes.
type Config struct {
	Routes map[intent.Intent]Route `yaml:"routes" json:"routes"`
}

// DefaultConfig returns the default routing table.
func DefaultConfig() Config {
	return Config{
		Routes: map[intent.Intent]Route{
			intent.Task:     {Categories: []string{"preference", "task_pattern", "productivity"}, Limit: 2},
			intent.Study:    {Categories: []string{"preference", "study_pattern", "learning"}, Limit: 2},
			intent.Expense:  {Categories: []string{"preference", "spending_pattern", "finance"}, Limit: 2},
			intent.Planning: {Categories: []string{"preference", "goal", "productivity"}, Limit: 3},
			intent.Memory:   {Categories: nil, Limit: 5},
			intent.General:  {Categories: []string{"preference", "insights"}, Limit: 2},
		},
	}
}

// Memory is a routed memory.
type Memory struct {
	Content   string  `json:"content"`
	Category  string  `json:"category"`
	Relevance float64 `json:"relevance"`
}

// Router routes memory lookups by intent.
type Router struct {
	store  Searcher
	config Config
	logger zerolog.Logger
}

// New creates a Router.
func New(store Searcher, cfg Config, logger zerolog.Logger) *Router {
	return &Router{
		store:  store,
		config: cfg,
		logger: logger.With().Str("component", "router").Logger(),
	}
}

// RouteFor returns the route of in, defaulting to the general route.
func (r *Router) RouteFor(in intent.Intent) Route {
	if route, ok := r.config.Routes[in]; ok {
		return route
	}
	return r.config.Routes[intent.General]
}

// Route searches the memories relevant to query for in. Relevance is the
// search score. userID is recorded for tracing; memories are not partitioned
// per user.
func (r *Router) Route(ctx context.Context, query string, in intent.Intent, userID string) ([]Memory, error) {
	route := r.RouteFor(in)

	records, err := r.store.Search(ctx, query, route.Limit, route.Categories)
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}

	memories := make([]Memory, 0, len(records))
	for _, rec := range records {
		memories = append(memories, Memory{
			Content:   rec.Content,
			Category:  rec.Category,
			Relevance: rec.Score,
		})
	}

	r.logger.Debug().
		Str("user_id", userID).
		Str("intent", in.String()).
		Strs("categories", route.Categories).
		Int("found", len(memories)).
		Msg("memories routed")
	return memories, nil
}

// FormatMemories renders memories as a block appended to the compressed context.
func FormatMemories(memories []Memory) string {
	if len(memories) == 0 {
		return ""
	}
	out := "Relevant memories:"
	for _, m := range memories {
		out += fmt.Sprintf("\n- [%s] %s", m.Category, m.Content)
	}
	return out
}
