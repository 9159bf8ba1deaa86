// Package memory implements the associative Memory Store.
//
// Records are persisted through a storage.RecordStore and ranked in Go by a
// weighted mix of bag-of-words similarity, accumulated relevance and staleness.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"

	"github.com/lifemate/lifemate-go/pkg/embedder"
	"github.com/lifemate/lifemate-go/pkg/embedder/bow"
	"github.com/lifemate/lifemate-go/pkg/storage"
)

// ErrEmptyKey is returned when a record is stored without a key.
var ErrEmptyKey = errors.New("memory key is required")

// DefaultCategory is used when StoreInput.Category is empty.
const DefaultCategory = "general"

// StoreInput describes a record to create or replace.
type StoreInput struct {
	Key      string
	Value    interface{}
	Category string

	// Content is the text to embed. Empty means the JSON form of Value.
	Content  string
	Metadata map[string]interface{}
}

// Store is the Memory Store. It is safe for concurrent use.
type Store struct {
	records  storage.RecordStore
	embedder embedder.Provider
	node     *snowflake.Node
	config   Config
	logger   zerolog.Logger
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Memory Store over records using emb for embeddings.
//
// Parameters:
//   - records: Persistence backend
//   - emb: Embedding provider (normally bow.New)
//   - cfg: Ranking and retention configuration
//   - logger: Parent logger
//
// Returns:
//   - *Store: The memory store
//   - error: Error if the snowflake node cannot be created
func NewStore(records storage.RecordStore, emb embedder.Provider, cfg Config, logger zerolog.Logger, opts ...Option) (*Store, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: snowflake node: %w", err)
	}

	s := &Store{
		records:  records,
		embedder: emb,
		node:     node,
		config:   cfg,
		logger:   logger.With().Str("component", "memory").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the store configuration.
func (s *Store) Config() Config {
	return s.config
}

// Store creates or replaces the record with in.Key.
func (s *Store) Store(ctx context.Context, in StoreInput) (*storage.Record, error) {
	if strings.TrimSpace(in.Key) == "" {
		return nil, ErrEmptyKey
	}

	category := in.Category
	if category == "" {
		category = DefaultCategory
	}

	content := in.Content
	if content == "" {
		encoded, err := storage.EncodeJSON(in.Value)
		if err != nil {
			return nil, fmt.Errorf("Store: %w", err)
		}
		content = encoded
	}

	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("Store: embed: %w", err)
	}

	now := s.now().UTC()
	rec := &storage.Record{
		ID:             s.node.Generate().Int64(),
		Key:            in.Key,
		Category:       category,
		Value:          in.Value,
		Content:        content,
		Embedding:      embedding,
		RelevanceScore: 1.0,
		Metadata:       in.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastAccessedAt: now,
	}

	stored, err := s.records.Upsert(ctx, rec, &storage.UpsertOptions{
		ResetRelevance: s.config.ResetRelevanceOnUpsert,
	})
	if err != nil {
		return nil, fmt.Errorf("Store: %w", err)
	}

	s.logger.Debug().Str("key", in.Key).Str("category", category).Int64("version", stored.Version).Msg("memory stored")
	return stored, nil
}

// Search returns up to limit records ranked for query, restricted to categories
// when non-empty. Returned records are then marked as accessed; the records
// themselves carry the access time from before the search.
func (s *Store) Search(ctx context.Context, query string, limit int, categories []string) ([]*storage.Record, error) {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("Search: embed: %w", err)
	}

	candidates, err := s.records.List(ctx, &storage.ListOptions{Categories: categories})
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}

	now := s.now().UTC()
	var results []*storage.Record
	if bow.Magnitude(queryVec) == 0 || !anyEmbedded(candidates) {
		results = s.keywordMatch(query, candidates, now)
	} else {
		for _, rec := range candidates {
			rec.Score = s.score(s.embedder.Similarity(queryVec, rec.Embedding), rec, now)
		}
		results = candidates
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	if len(results) > 0 {
		ids := make([]int64, len(results))
		for i, rec := range results {
			ids[i] = rec.ID
		}
		if err := s.records.Touch(ctx, ids, now); err != nil {
			s.logger.Warn().Err(err).Int("count", len(ids)).Msg("failed to update last access")
		}
	}

	return results, nil
}

// score combines similarity, relevance and staleness. Records unused for
// longer get a larger recency term.
func (s *Store) score(similarity float64, rec *storage.Record, now time.Time) float64 {
	return similarity*s.config.SimilarityWeight +
		rec.RelevanceScore*s.config.RelevanceWeight +
		s.recency(rec, now)*s.config.RecencyWeight
}

func (s *Store) recency(rec *storage.Record, now time.Time) float64 {
	if s.config.RecencyWindowDays <= 0 {
		return 0
	}
	days := now.Sub(rec.LastAccessedAt).Hours() / 24
	if days < 0 {
		return 0
	}
	if r := days / s.config.RecencyWindowDays; r < 1 {
		return r
	}
	return 1
}

// keywordMatch keeps candidates whose key, content or serialized value contains
// query, ignoring case. Matches score as full similarity.
func (s *Store) keywordMatch(query string, candidates []*storage.Record, now time.Time) []*storage.Record {
	needle := strings.ToLower(strings.TrimSpace(query))

	var matched []*storage.Record
	for _, rec := range candidates {
		value, _ := storage.EncodeJSON(rec.Value)
		haystack := strings.ToLower(rec.Key + "\n" + rec.Content + "\n" + value)
		if !strings.Contains(haystack, needle) {
			continue
		}
		rec.Score = s.score(1, rec, now)
		matched = append(matched, rec)
	}
	return matched
}

func anyEmbedded(records []*storage.Record) bool {
	for _, rec := range records {
		if bow.Magnitude(rec.Embedding) > 0 {
			return true
		}
	}
	return false
}

// BoostRelevance adds delta to the relevance of record id and returns the new
// relevance. Relevance never drops below zero. Concurrent boosts are applied
// with compare-and-set and retried up to Config.BoostRetries times.
func (s *Store) BoostRelevance(ctx context.Context, id int64, delta float64) (float64, error) {
	for attempt := 0; attempt <= s.config.BoostRetries; attempt++ {
		rec, err := s.records.Get(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("BoostRelevance: %w", err)
		}

		relevance := rec.RelevanceScore + delta
		if relevance < 0 {
			relevance = 0
		}

		err = s.records.SetRelevance(ctx, id, relevance, rec.Version)
		if err == nil {
			return relevance, nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return 0, fmt.Errorf("BoostRelevance: %w", err)
		}
		s.logger.Debug().Int64("id", id).Int("attempt", attempt+1).Msg("relevance update conflicted, retrying")
	}
	return 0, fmt.Errorf("BoostRelevance: %w", storage.ErrVersionConflict)
}

// CleanOldMemories deletes records unused for daysUnused days whose relevance is
// below the configured threshold. A non-positive daysUnused uses Config.CleanupDays.
func (s *Store) CleanOldMemories(ctx context.Context, daysUnused int) (int64, error) {
	if daysUnused <= 0 {
		daysUnused = s.config.CleanupDays
	}

	cutoff := s.now().UTC().AddDate(0, 0, -daysUnused)
	deleted, err := s.records.DeleteStale(ctx, cutoff, s.config.CleanupRelevanceThreshold)
	if err != nil {
		return 0, fmt.Errorf("CleanOldMemories: %w", err)
	}

	s.logger.Info().Int64("deleted", deleted).Int("days_unused", daysUnused).Msg("old memories cleaned")
	return deleted, nil
}

// Get returns the record stored under key.
func (s *Store) Get(ctx context.Context, key string) (*storage.Record, error) {
	rec, err := s.records.GetByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return rec, nil
}

// List returns records of category (all when empty), most relevant first.
func (s *Store) List(ctx context.Context, category string, limit int) ([]*storage.Record, error) {
	opts := &storage.ListOptions{Limit: limit}
	if category != "" {
		opts.Categories = []string{category}
	}

	records, err := s.records.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return records, nil
}

// Delete removes the record stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.records.Delete(ctx, key); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// Close closes the underlying record store.
func (s *Store) Close() error {
	return s.records.Close()
}
