package postgres_test

import (
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/storage"
	postgresStore "github.com/lifemate/lifemate-go/pkg/storage/postgres"
	"github.com/lifemate/lifemate-go/pkg/storage/storagetest"
)

func setupPostgresTest(t *testing.T) *postgresStore.Client {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("Skipping PostgreSQL test: POSTGRES_TEST_DSN not set")
	}

	store, err := postgresStore.NewClient(&postgresStore.Config{
		DSN:            dsn,
		CollectionName: "test_memories_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		EmbeddingDims:  3,
	})
	require.NoError(t, err)
	return store
}

func TestPostgresClient_Suite(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.RecordStore {
		return setupPostgresTest(t)
	})
}
