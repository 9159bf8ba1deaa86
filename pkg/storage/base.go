// Package storage provides interfaces and types for memory record backends.
//
// It defines the RecordStore interface that all backend implementations must
// satisfy (SQLite, PostgreSQL, MySQL), along with the record type and options.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates that no record matched.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict indicates that a compare-and-set update lost a race.
	ErrVersionConflict = errors.New("record version conflict")
)

// Record is one durable fact, preference or insight.
type Record struct {
	// ID is the internal identifier (snowflake).
	ID int64

	// Key is the globally unique upsert key.
	Key string

	// Category is a free-form tag used for coarse filtering.
	Category string

	// Value is the JSON-serialisable payload.
	Value interface{}

	// Content is the text the embedding was derived from.
	Content string

	// Embedding is the fixed-length pseudo-embedding of Content.
	Embedding []float64

	// RelevanceScore is the ranking and retention signal (1.0 at creation).
	RelevanceScore float64

	// Metadata is provenance only; ranking never reads it.
	Metadata map[string]interface{}

	// CreatedAt is when the record was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the record was last upserted or boosted.
	UpdatedAt time.Time

	// LastAccessedAt is when the record was last stored or returned by a search.
	LastAccessedAt time.Time

	// Version increases on every upsert and relevance update.
	Version int64

	// Score is the ranking score from search operations (not persisted).
	Score float64
}

// UpsertOptions controls Upsert behaviour.
type UpsertOptions struct {
	// ResetRelevance overwrites an existing record's relevance with the
	// incoming RelevanceScore instead of preserving it.
	ResetRelevance bool
}

// ListOptions filters List results.
type ListOptions struct {
	// Categories restricts results to these categories when non-empty.
	Categories []string

	// Limit caps the number of results; 0 means no limit.
	Limit int
}

// RecordStore defines the interface for memory record backends.
//
// Every mutating method is a single statement so concurrent writers never
// interleave a read-modify-write on the same record.
type RecordStore interface {
	// Upsert inserts rec or replaces the record with the same Key.
	//
	// On replace the ID and CreatedAt of the existing record are kept,
	// Version is incremented, and RelevanceScore is preserved unless
	// opts.ResetRelevance is set. Returns the stored record.
	Upsert(ctx context.Context, rec *Record, opts *UpsertOptions) (*Record, error)

	// Get retrieves a record by ID.
	Get(ctx context.Context, id int64) (*Record, error)

	// GetByKey retrieves a record by Key.
	GetByKey(ctx context.Context, key string) (*Record, error)

	// List returns records ordered by relevance then recency.
	List(ctx context.Context, opts *ListOptions) ([]*Record, error)

	// Touch sets last_accessed_at for all ids in one statement.
	Touch(ctx context.Context, ids []int64, at time.Time) error

	// SetRelevance sets the relevance of record id if its version still equals
	// expectedVersion, incrementing the version. Returns ErrVersionConflict if the
	// version moved and ErrNotFound if the record is gone.
	SetRelevance(ctx context.Context, id int64, relevance float64, expectedVersion int64) error

	// DeleteStale deletes records last accessed before cutoff whose relevance
	// is below maxRelevance, returning the number deleted.
	DeleteStale(ctx context.Context, cutoff time.Time, maxRelevance float64) (int64, error)

	// Delete deletes a record by Key.
	Delete(ctx context.Context, key string) error

	// Close closes the store and releases resources.
	Close() error
}
