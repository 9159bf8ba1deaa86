package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/lifemate/lifemate-go/pkg/memory"
	"github.com/lifemate/lifemate-go/pkg/storage"
)

// StoreMemory creates or replaces the memory stored under in.Key.
//
// Returns ErrInvalidInput for an empty key and ErrStorageOperation when the
// backend fails.
func (c *Client) StoreMemory(ctx context.Context, in memory.StoreInput) (*storage.Record, error) {
	if strings.TrimSpace(in.Key) == "" {
		return nil, NewLifeMateError("StoreMemory", fmt.Errorf("%w: key is required", ErrInvalidInput))
	}

	rec, err := c.memory.Store(ctx, in)
	if err != nil {
		return nil, storageError("StoreMemory", err)
	}
	return rec, nil
}

// SearchMemories ranks memories for query. An empty categories slice searches
// every category.
func (c *Client) SearchMemories(ctx context.Context, query string, limit int, categories []string) ([]*storage.Record, error) {
	if strings.TrimSpace(query) == "" {
		return nil, NewLifeMateError("SearchMemories", fmt.Errorf("%w: query is required", ErrInvalidInput))
	}

	records, err := c.memory.Search(ctx, query, limit, categories)
	if err != nil {
		return nil, storageError("SearchMemories", err)
	}
	return records, nil
}

// ListMemories returns memories of category (all when empty), most relevant first.
func (c *Client) ListMemories(ctx context.Context, category string, limit int) ([]*storage.Record, error) {
	if limit < 0 {
		return nil, NewLifeMateError("ListMemories", fmt.Errorf("%w: negative limit %d", ErrInvalidInput, limit))
	}

	records, err := c.memory.List(ctx, category, limit)
	if err != nil {
		return nil, storageError("ListMemories", err)
	}
	return records, nil
}

// BoostMemory adds delta to the relevance of memory id and returns the new relevance.
func (c *Client) BoostMemory(ctx context.Context, id int64, delta float64) (float64, error) {
	if id <= 0 {
		return 0, NewLifeMateError("BoostMemory", fmt.Errorf("%w: invalid id %d", ErrInvalidInput, id))
	}

	relevance, err := c.memory.BoostRelevance(ctx, id, delta)
	if err != nil {
		return 0, storageError("BoostMemory", err)
	}
	return relevance, nil
}

// DeleteMemory removes the memory stored under key. A missing key yields an
// error matching storage.ErrNotFound.
func (c *Client) DeleteMemory(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return NewLifeMateError("DeleteMemory", fmt.Errorf("%w: key is required", ErrInvalidInput))
	}

	if err := c.memory.Delete(ctx, key); err != nil {
		return storageError("DeleteMemory", err)
	}
	return nil
}

// CleanMemories deletes unused low-relevance memories now. A non-positive
// daysUnused uses the configured threshold.
func (c *Client) CleanMemories(ctx context.Context, daysUnused int) (int64, error) {
	deleted, err := c.memory.CleanOldMemories(ctx, daysUnused)
	if err != nil {
		return 0, storageError("CleanMemories", err)
	}
	return deleted, nil
}

func storageError(op string, err error) error {
	return NewLifeMateError(op, fmt.Errorf("%w: %w", ErrStorageOperation, err))
}
