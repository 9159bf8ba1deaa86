package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/storage"
	sqliteStore "github.com/lifemate/lifemate-go/pkg/storage/sqlite"
	"github.com/lifemate/lifemate-go/pkg/storage/storagetest"
)

func setupSQLiteTest(t *testing.T) (*sqliteStore.Client, func()) {
	config := &sqliteStore.Config{
		DBPath:         filepath.Join(t.TempDir(), "data", "lifemate.db"),
		CollectionName: "memories",
	}

	store, err := sqliteStore.NewClient(config)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		_ = store.Close()
	}
	return store, cleanup
}

func TestSQLiteClient_Suite(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.RecordStore {
		store, _ := setupSQLiteTest(t)
		return store
	})
}

func TestSQLiteClient_ConcurrentUpsertKeepsOneRecord(t *testing.T) {
	store, cleanup := setupSQLiteTest(t)
	defer cleanup()

	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := store.Upsert(ctx, storagetest.NewRecord(id, "same", "preference", "v"), nil)
			assert.NoError(t, err)
		}(int64(i))
	}
	wg.Wait()

	records, err := store.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(10), records[0].Version)
}

func TestSQLiteClient_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lifemate.db")

	store, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: path})
	require.NoError(t, err)
	_, err = store.Upsert(context.Background(), storagetest.NewRecord(7, "k", "goal", "finish course"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: path})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	rec, err := reopened.GetByKey(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, "finish course", rec.Content)
}
