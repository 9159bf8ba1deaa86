package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/core"
	"github.com/lifemate/lifemate-go/pkg/storage"
)

func setupCLITest(t *testing.T) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "lifemate.yaml")
	content := "log:\n  level: error\nstorage:\n  provider: sqlite\n  sqlite:\n    path: " +
		filepath.Join(dir, "memory.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMemoryCommands(t *testing.T) {
	config := setupCLITest(t)

	out, err := runCLI(t, "--config", config, "memory", "store", "--key", "drink", "--category", "preferences", "likes green tea")
	require.NoError(t, err)
	assert.Contains(t, out, "stored drink")

	out, err = runCLI(t, "--config", config, "memory", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "drink")
	assert.Contains(t, out, "likes green tea")

	out, err = runCLI(t, "--config", config, "memory", "search", "--category", "preferences", "green tea")
	require.NoError(t, err)
	assert.Contains(t, out, "drink")

	out, err = runCLI(t, "--config", config, "memory", "cleanup")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 0 memories")

	out, err = runCLI(t, "--config", config, "memory", "delete", "drink")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted drink")

	_, err = runCLI(t, "--config", config, "memory", "delete", "drink")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorageOperation)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryStore_RequiresKey(t *testing.T) {
	config := setupCLITest(t)

	_, err := runCLI(t, "--config", config, "memory", "store", "value")
	assert.Error(t, err)
}

func TestMemoryBoost_InvalidID(t *testing.T) {
	config := setupCLITest(t)

	_, err := runCLI(t, "--config", config, "memory", "boost", "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = runCLI(t, "--config", config, "memory", "boost", "0")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
