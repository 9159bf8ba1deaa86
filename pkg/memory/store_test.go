package memory_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/embedder/bow"
	"github.com/lifemate/lifemate-go/pkg/memory"
	"github.com/lifemate/lifemate-go/pkg/storage"
	sqliteStore "github.com/lifemate/lifemate-go/pkg/storage/sqlite"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupMemoryTest(t *testing.T, mutate func(*memory.Config)) (*memory.Store, *sqliteStore.Client, *testClock, func()) {
	records, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "memory.db"),
	})
	require.NoError(t, err)

	cfg := memory.DefaultConfig()
	cfg.BoostRetries = 20
	if mutate != nil {
		mutate(&cfg)
	}

	clock := &testClock{now: time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)}
	store, err := memory.NewStore(records, bow.New(0), cfg, zerolog.Nop(), memory.WithClock(clock.Now))
	require.NoError(t, err)

	cleanup := func() {
		_ = store.Close()
	}
	return store, records, clock, cleanup
}

func TestStore_StoreAndGet(t *testing.T) {
	store, _, _, cleanup := setupMemoryTest(t, nil)
	defer cleanup()

	ctx := context.Background()

	rec, err := store.Store(ctx, memory.StoreInput{
		Key:   "goal:ielts",
		Value: map[string]interface{}{"target": 7.5},
	})
	require.NoError(t, err)

	assert.Equal(t, memory.DefaultCategory, rec.Category)
	assert.Equal(t, `{"target":7.5}`, rec.Content)
	assert.Equal(t, 1.0, rec.RelevanceScore)
	assert.Len(t, rec.Embedding, bow.DefaultDimensions)
	assert.NotZero(t, rec.ID)

	got, err := store.Get(ctx, "goal:ielts")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = store.Store(ctx, memory.StoreInput{Key: "  "})
	assert.ErrorIs(t, err, memory.ErrEmptyKey)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_StoreIsIdempotentPerKey(t *testing.T) {
	store, _, _, cleanup := setupMemoryTest(t, nil)
	defer cleanup()

	ctx := context.Background()

	first, err := store.Store(ctx, memory.StoreInput{Key: "pref", Category: "preference", Content: "likes tea"})
	require.NoError(t, err)
	second, err := store.Store(ctx, memory.StoreInput{Key: "pref", Category: "preference", Content: "likes coffee"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "likes coffee", second.Content)

	all, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_UpsertPreservesRelevance(t *testing.T) {
	store, _, _, cleanup := setupMemoryTest(t, nil)
	defer cleanup()

	ctx := context.Background()

	rec, err := store.Store(ctx, memory.StoreInput{Key: "pref", Content: "likes tea"})
	require.NoError(t, err)
	_, err = store.BoostRelevance(ctx, rec.ID, 0.5)
	require.NoError(t, err)

	again, err := store.Store(ctx, memory.StoreInput{Key: "pref", Content: "likes green tea"})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, again.RelevanceScore, 1e-9)
}

func TestStore_UpsertResetsRelevanceWhenConfigured(t *testing.T) {
	store, _, _, cleanup := setupMemoryTest(t, func(cfg *memory.Config) {
		cfg.ResetRelevanceOnUpsert = true
	})
	defer cleanup()

	ctx := context.Background()

	rec, err := store.Store(ctx, memory.StoreInput{Key: "pref", Content: "likes tea"})
	require.NoError(t, err)
	_, err = store.BoostRelevance(ctx, rec.ID, 0.5)
	require.NoError(t, err)

	again, err := store.Store(ctx, memory.StoreInput{Key: "pref", Content: "likes green tea"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.RelevanceScore)
}

func TestStore_SearchRespectsLimitAndCategories(t *testing.T) {
	store, _, _, cleanup := setupMemoryTest(t, nil)
	defer cleanup()

	ctx := context.Background()

	inputs := []memory.StoreInput{
		{Key: "a", Category: "preference", Content: "prefers studying english in the morning"},
		{Key: "b", Category: "preference", Content: "prefers short study sessions"},
		{Key: "c", Category: "finance", Content: "spends most on food and coffee"},
		{Key: "d", Category: "goal", Content: "wants to pass the english exam"},
	}
	for _, in := range inputs {
		_, err := store.Store(ctx, in)
		require.NoError(t, err)
	}

	results, err := store.Search(ctx, "studying english", 2, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	filtered, err := store.Search(ctx, "english", 10, []string{"preference"})
	require.NoError(t, err)
	require.NotEmpty(t, filtered)
	for _, rec := range filtered {
		assert.Equal(t, "preference", rec.Category)
	}

	for i := 1; i < len(filtered); i++ {
		assert.GreaterOrEqual(t, filtered[i-1].Score, filtered[i].Score)
	}
}

func TestStore_SearchTouchesResults(t *testing.T) {
	store, _, clock, cleanup := setupMemoryTest(t, nil)
	defer cleanup()

	ctx := context.Background()
	storedAt := clock.Now()

	_, err := store.Store(ctx, memory.StoreInput{Key: "k", Content: "weekly budget review"})
	require.NoError(t, err)

	clock.Advance(72 * time.Hour)

	results, err := store.Search(ctx, "budget", 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].LastAccessedAt.Equal(storedAt))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, got.LastAccessedAt.Equal(clock.Now()))
}

func TestStore_SearchFavoursStaleRecords(t *testing.T) {
	store, _, clock, cleanup := setupMemoryTest(t, nil)
	defer cleanup()

	ctx := context.Background()

	_, err := store.Store(ctx, memory.StoreInput{Key: "old", Content: "evening jog routine"})
	require.NoError(t, err)

	clock.Advance(40 * 24 * time.Hour)
	_, err = store.Store(ctx, memory.StoreInput{Key: "new", Content: "evening jog routine"})
	require.NoError(t, err)

	results, err := store.Search(ctx, "evening jog routine", 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "old", results[0].Key)
	assert.InDelta(t, 0.7+0.2+0.1, results[0].Score, 1e-9)
	assert.InDelta(t, 0.7+0.2, results[1].Score, 1e-9)
}

func TestStore_SearchKeywordFallback(t *testing.T) {
	store, records, clock, cleanup := setupMemoryTest(t, nil)
	defer cleanup()

	ctx := context.Background()
	now := clock.Now()

	// Legacy rows without embeddings.
	for i, content := range []string{"Monthly Budget limit", "gym on fridays"} {
		_, err := records.Upsert(ctx, &storage.Record{
			ID:             int64(i + 1),
			Key:            content,
			Category:       "general",
			Content:        content,
			RelevanceScore: 1.0,
			CreatedAt:      now,
			UpdatedAt:      now,
			LastAccessedAt: now,
		}, nil)
		require.NoError(t, err)
	}

	results, err := store.Search(ctx, "BUDGET", 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Monthly Budget limit", results[0].Content)
}

func TestStore_BoostRelevance(t *testing.T) {
	store, _, _, cleanup := setupMemoryTest(t, nil)
	defer cleanup()

	ctx := context.Background()

	rec, err := store.Store(ctx, memory.StoreInput{Key: "k", Content: "x"})
	require.NoError(t, err)

	relevance, err := store.BoostRelevance(ctx, rec.ID, 0.25)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, relevance, 1e-9)

	relevance, err = store.BoostRelevance(ctx, rec.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, relevance)

	_, err = store.BoostRelevance(ctx, 12345, 0.1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_BoostRelevanceConcurrent(t *testing.T) {
	store, _, _, cleanup := setupMemoryTest(t, nil)
	defer cleanup()

	ctx := context.Background()

	rec, err := store.Store(ctx, memory.StoreInput{Key: "k", Content: "x"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.BoostRelevance(ctx, rec.ID, 0.1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got.RelevanceScore, 1e-9)
}

func TestStore_CleanOldMemories(t *testing.T) {
	store, _, clock, cleanup := setupMemoryTest(t, nil)
	defer cleanup()

	ctx := context.Background()

	weak, err := store.Store(ctx, memory.StoreInput{Key: "weak", Content: "one-off note"})
	require.NoError(t, err)
	_, err = store.BoostRelevance(ctx, weak.ID, -0.8)
	require.NoError(t, err)

	_, err = store.Store(ctx, memory.StoreInput{Key: "strong", Content: "core preference"})
	require.NoError(t, err)

	clock.Advance(89 * 24 * time.Hour)
	deleted, err := store.CleanOldMemories(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	clock.Advance(2 * 24 * time.Hour)
	deleted, err = store.CleanOldMemories(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = store.Get(ctx, "weak")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.Get(ctx, "strong")
	assert.NoError(t, err)
}

func TestStore_ListAndDelete(t *testing.T) {
	store, _, _, cleanup := setupMemoryTest(t, nil)
	defer cleanup()

	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := store.Store(ctx, memory.StoreInput{Key: key, Content: key})
		require.NoError(t, err)
	}
	_, err := store.Store(ctx, memory.StoreInput{Key: "p", Category: "preferences", Content: "p"})
	require.NoError(t, err)

	general, err := store.List(ctx, memory.DefaultCategory, 2)
	require.NoError(t, err)
	assert.Len(t, general, 2)

	require.NoError(t, store.Delete(ctx, "a"))
	assert.ErrorIs(t, store.Delete(ctx, "a"), storage.ErrNotFound)
}

func TestJanitor(t *testing.T) {
	store, _, clock, cleanup := setupMemoryTest(t, nil)
	defer cleanup()

	ctx := context.Background()

	rec, err := store.Store(ctx, memory.StoreInput{Key: "weak", Content: "x"})
	require.NoError(t, err)
	_, err = store.BoostRelevance(ctx, rec.ID, -0.9)
	require.NoError(t, err)
	clock.Advance(10 * 24 * time.Hour)

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_deleted_total"})
	janitor, err := memory.NewJanitor(store, "", 7, zerolog.Nop(), memory.WithDeletedCounter(counter))
	require.NoError(t, err)

	janitor.Start()
	defer janitor.Stop()

	deleted, err := janitor.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1.0, testutil.ToFloat64(counter))

	_, err = memory.NewJanitor(store, "not a schedule", 0, zerolog.Nop())
	assert.Error(t, err)
}
