// Package storagetest holds a behavioural suite shared by every RecordStore backend.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/storage"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) storage.RecordStore

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// NewRecord builds a record with the given id and key, timestamped at baseTime.
func NewRecord(id int64, key, category, content string) *storage.Record {
	return &storage.Record{
		ID:             id,
		Key:            key,
		Category:       category,
		Value:          map[string]interface{}{"text": content},
		Content:        content,
		Embedding:      []float64{1, 0.5, 0},
		RelevanceScore: 1.0,
		Metadata:       map[string]interface{}{"source": "test"},
		CreatedAt:      baseTime,
		UpdatedAt:      baseTime,
		LastAccessedAt: baseTime,
	}
}

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store storage.RecordStore)
	}{
		{"UpsertInsert", testUpsertInsert},
		{"UpsertReplacePreservesRelevance", testUpsertReplace},
		{"UpsertResetRelevance", testUpsertResetRelevance},
		{"GetMissing", testGetMissing},
		{"ListOrderingAndFilter", testList},
		{"Touch", testTouch},
		{"SetRelevance", testSetRelevance},
		{"DeleteStale", testDeleteStale},
		{"Delete", testDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			defer func() { _ = store.Close() }()
			tt.fn(t, store)
		})
	}
}

func testUpsertInsert(t *testing.T, store storage.RecordStore) {
	ctx := context.Background()

	stored, err := store.Upsert(ctx, NewRecord(1, "preference:study_time", "preference", "User studies in the morning"), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stored.ID)
	assert.Equal(t, "preference:study_time", stored.Key)
	assert.Equal(t, "preference", stored.Category)
	assert.Equal(t, "User studies in the morning", stored.Content)
	assert.Equal(t, map[string]interface{}{"text": "User studies in the morning"}, stored.Value)
	assert.Equal(t, "test", stored.Metadata["source"])
	assert.InDeltaSlice(t, []float64{1, 0.5, 0}, stored.Embedding[:3], 1e-6)
	assert.Equal(t, 1.0, stored.RelevanceScore)
	assert.Equal(t, int64(1), stored.Version)
	assert.True(t, stored.CreatedAt.Equal(baseTime))
}

func testUpsertReplace(t *testing.T, store storage.RecordStore) {
	ctx := context.Background()

	first, err := store.Upsert(ctx, NewRecord(1, "k", "preference", "old"), nil)
	require.NoError(t, err)
	require.NoError(t, store.SetRelevance(ctx, first.ID, 1.5, first.Version))

	next := NewRecord(2, "k", "goal", "new")
	next.CreatedAt = baseTime.Add(time.Hour)
	next.UpdatedAt = baseTime.Add(time.Hour)
	next.LastAccessedAt = baseTime.Add(time.Hour)

	stored, err := store.Upsert(ctx, next, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, stored.ID)
	assert.True(t, stored.CreatedAt.Equal(baseTime))
	assert.True(t, stored.UpdatedAt.Equal(baseTime.Add(time.Hour)))
	assert.Equal(t, "goal", stored.Category)
	assert.Equal(t, "new", stored.Content)
	assert.Equal(t, 1.5, stored.RelevanceScore)
	assert.Equal(t, int64(3), stored.Version)
}

func testUpsertResetRelevance(t *testing.T, store storage.RecordStore) {
	ctx := context.Background()

	first, err := store.Upsert(ctx, NewRecord(1, "k", "preference", "old"), nil)
	require.NoError(t, err)
	require.NoError(t, store.SetRelevance(ctx, first.ID, 1.7, first.Version))

	stored, err := store.Upsert(ctx, NewRecord(2, "k", "preference", "new"), &storage.UpsertOptions{ResetRelevance: true})
	require.NoError(t, err)
	assert.Equal(t, 1.0, stored.RelevanceScore)
}

func testGetMissing(t *testing.T, store storage.RecordStore) {
	ctx := context.Background()

	_, err := store.Get(ctx, 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetByKey(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testList(t *testing.T, store storage.RecordStore) {
	ctx := context.Background()

	low, err := store.Upsert(ctx, NewRecord(1, "a", "preference", "a"), nil)
	require.NoError(t, err)
	require.NoError(t, store.SetRelevance(ctx, low.ID, 0.4, low.Version))

	_, err = store.Upsert(ctx, NewRecord(2, "b", "goal", "b"), nil)
	require.NoError(t, err)

	high, err := store.Upsert(ctx, NewRecord(3, "c", "preference", "c"), nil)
	require.NoError(t, err)
	require.NoError(t, store.SetRelevance(ctx, high.ID, 1.9, high.Version))

	all, err := store.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Key)
	assert.Equal(t, "b", all[1].Key)
	assert.Equal(t, "a", all[2].Key)

	prefs, err := store.List(ctx, &storage.ListOptions{Categories: []string{"preference"}})
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	for _, rec := range prefs {
		assert.Equal(t, "preference", rec.Category)
	}

	limited, err := store.List(ctx, &storage.ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].Key)
}

func testTouch(t *testing.T, store storage.RecordStore) {
	ctx := context.Background()

	a, err := store.Upsert(ctx, NewRecord(1, "a", "preference", "a"), nil)
	require.NoError(t, err)
	b, err := store.Upsert(ctx, NewRecord(2, "b", "preference", "b"), nil)
	require.NoError(t, err)

	at := baseTime.Add(48 * time.Hour)
	require.NoError(t, store.Touch(ctx, []int64{a.ID, b.ID}, at))
	require.NoError(t, store.Touch(ctx, nil, at))

	for _, id := range []int64{a.ID, b.ID} {
		rec, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, rec.LastAccessedAt.Equal(at), "id %d: %v", id, rec.LastAccessedAt)
		assert.Equal(t, int64(1), rec.Version)
	}
}

func testSetRelevance(t *testing.T, store storage.RecordStore) {
	ctx := context.Background()

	rec, err := store.Upsert(ctx, NewRecord(1, "a", "preference", "a"), nil)
	require.NoError(t, err)

	require.NoError(t, store.SetRelevance(ctx, rec.ID, 1.1, rec.Version))

	err = store.SetRelevance(ctx, rec.ID, 1.2, rec.Version)
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	err = store.SetRelevance(ctx, 999, 1.2, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.1, got.RelevanceScore)
	assert.Equal(t, rec.Version+1, got.Version)
}

func testDeleteStale(t *testing.T, store storage.RecordStore) {
	ctx := context.Background()

	// stale and weak: deleted
	stale, err := store.Upsert(ctx, NewRecord(1, "stale", "preference", "stale"), nil)
	require.NoError(t, err)
	require.NoError(t, store.SetRelevance(ctx, stale.ID, 0.3, stale.Version))

	// stale but strong: kept
	_, err = store.Upsert(ctx, NewRecord(2, "strong", "preference", "strong"), nil)
	require.NoError(t, err)

	// weak but recent: kept
	recent, err := store.Upsert(ctx, NewRecord(3, "recent", "preference", "recent"), nil)
	require.NoError(t, err)
	require.NoError(t, store.SetRelevance(ctx, recent.ID, 0.3, recent.Version))
	require.NoError(t, store.Touch(ctx, []int64{recent.ID}, baseTime.Add(100*24*time.Hour)))

	deleted, err := store.DeleteStale(ctx, baseTime.Add(24*time.Hour), 0.5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = store.GetByKey(ctx, "stale")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetByKey(ctx, "strong")
	assert.NoError(t, err)
	_, err = store.GetByKey(ctx, "recent")
	assert.NoError(t, err)
}

func testDelete(t *testing.T, store storage.RecordStore) {
	ctx := context.Background()

	_, err := store.Upsert(ctx, NewRecord(1, "a", "preference", "a"), nil)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "a"))
	assert.ErrorIs(t, store.Delete(ctx, "a"), storage.ErrNotFound)
}
