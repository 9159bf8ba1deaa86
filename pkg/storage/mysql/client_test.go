package mysql_test

import (
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/storage"
	mysqlStore "github.com/lifemate/lifemate-go/pkg/storage/mysql"
	"github.com/lifemate/lifemate-go/pkg/storage/storagetest"
)

func TestConfig_FormatDSN(t *testing.T) {
	cfg := &mysqlStore.Config{
		Host:     "127.0.0.1",
		Port:     3306,
		User:     "root",
		Password: "secret",
		DBName:   "lifemate",
	}

	dsn := cfg.FormatDSN()
	assert.True(t, strings.HasPrefix(dsn, "root:secret@tcp(127.0.0.1:3306)/lifemate?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "clientFoundRows=true")

	cfg.DSN = "custom"
	assert.Equal(t, "custom", cfg.FormatDSN())
}

func TestMySQLClient_Suite(t *testing.T) {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("Skipping MySQL test: MYSQL_TEST_DSN not set")
	}

	storagetest.Run(t, func(t *testing.T) storage.RecordStore {
		store, err := mysqlStore.NewClient(&mysqlStore.Config{
			DSN:            dsn,
			CollectionName: "test_memories_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		})
		require.NoError(t, err)
		return store
	})
}
