// Package sqlite provides the SQLite implementation of storage.RecordStore.
//
// SQLite is a lightweight, file-based database suitable for a single-user
// assistant. Embeddings are stored as JSON strings in TEXT fields and similarity
// is computed in Go by the memory package.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lifemate/lifemate-go/pkg/storage"
	_ "github.com/mattn/go-sqlite3"
)

const recordColumns = `id, record_key, category, value, content, embedding, relevance_score,
	metadata, created_at, updated_at, last_accessed_at, version`

// Client implements storage.RecordStore using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// collectionName is the name of the table storing records.
	collectionName string
}

// Config contains configuration for creating a SQLite RecordStore.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CollectionName is the name of the table to use (default "memories").
	CollectionName string
}

// NewClient creates a new SQLite RecordStore client.
//
// Parameters:
//   - cfg: Configuration containing database path and table name
//
// Returns:
//   - *Client: The SQLite client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	collection := cfg.CollectionName
	if collection == "" {
		collection = "memories"
	}

	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}
	// One writer at a time keeps compare-and-set updates serialised.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{
		db:             db,
		collectionName: collection,
	}

	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			record_key TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL DEFAULT 'general',
			value TEXT,
			content TEXT NOT NULL,
			embedding TEXT NOT NULL,
			relevance_score REAL NOT NULL DEFAULT 1.0,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			last_accessed_at DATETIME NOT NULL,
			version INTEGER NOT NULL DEFAULT 1
		)
	`, c.collectionName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	for _, column := range []string{"category", "last_accessed_at"} {
		indexQuery := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)`,
			c.collectionName, column, c.collectionName, column)
		if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
			return fmt.Errorf("initTables: %w", err)
		}
	}

	return nil
}

// Upsert inserts a record or replaces the one with the same key in a single statement.
func (c *Client) Upsert(ctx context.Context, rec *storage.Record, opts *storage.UpsertOptions) (*storage.Record, error) {
	if opts == nil {
		opts = &storage.UpsertOptions{}
	}

	value, err := storage.EncodeJSON(rec.Value)
	if err != nil {
		return nil, fmt.Errorf("Upsert: %w", err)
	}
	embedding, err := storage.EncodeJSON(rec.Embedding)
	if err != nil {
		return nil, fmt.Errorf("Upsert: %w", err)
	}
	metadata, err := storage.EncodeJSON(rec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("Upsert: %w", err)
	}

	relevanceClause := ""
	if opts.ResetRelevance {
		relevanceClause = "relevance_score = excluded.relevance_score,"
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s
		(id, record_key, category, value, content, embedding, relevance_score,
		 metadata, created_at, updated_at, last_accessed_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(record_key) DO UPDATE SET
			category = excluded.category,
			value = excluded.value,
			content = excluded.content,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at,
			last_accessed_at = excluded.last_accessed_at,
			%[2]s
			version = %[1]s.version + 1
	`, c.collectionName, relevanceClause)

	_, err = c.db.ExecContext(ctx, query,
		rec.ID,
		rec.Key,
		rec.Category,
		value,
		rec.Content,
		embedding,
		rec.RelevanceScore,
		metadata,
		rec.CreatedAt.UTC(),
		rec.UpdatedAt.UTC(),
		rec.LastAccessedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("Upsert: %w", err)
	}

	return c.GetByKey(ctx, rec.Key)
}

// Get retrieves a record by ID.
func (c *Client) Get(ctx context.Context, id int64) (*storage.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, recordColumns, c.collectionName)
	rec, err := scanRecord(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Get: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return rec, nil
}

// GetByKey retrieves a record by key.
func (c *Client) GetByKey(ctx context.Context, key string) (*storage.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE record_key = ?`, recordColumns, c.collectionName)
	rec, err := scanRecord(c.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetByKey: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetByKey: %w", err)
	}
	return rec, nil
}

// List returns records ordered by relevance then recency.
func (c *Client) List(ctx context.Context, opts *storage.ListOptions) ([]*storage.Record, error) {
	if opts == nil {
		opts = &storage.ListOptions{}
	}

	whereClause, args := buildCategoryClause(opts.Categories)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		%s
		ORDER BY relevance_score DESC, updated_at DESC, id
	`, recordColumns, c.collectionName, whereClause)
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	return records, nil
}

// Touch sets last_accessed_at for the given ids in one statement.
func (c *Client) Touch(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, at.UTC())
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf(`UPDATE %s SET last_accessed_at = ? WHERE id IN (%s)`,
		c.collectionName, storage.Placeholders(len(ids)))
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("Touch: %w", err)
	}
	return nil
}

// SetRelevance performs a compare-and-set on the record version.
func (c *Client) SetRelevance(ctx context.Context, id int64, relevance float64, expectedVersion int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET relevance_score = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`, c.collectionName)

	result, err := c.db.ExecContext(ctx, query, relevance, time.Now().UTC(), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("SetRelevance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetRelevance: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	if _, err := c.Get(ctx, id); err != nil {
		return fmt.Errorf("SetRelevance: %w", err)
	}
	return fmt.Errorf("SetRelevance: %w", storage.ErrVersionConflict)
}

// DeleteStale deletes unused low-relevance records.
func (c *Client) DeleteStale(ctx context.Context, cutoff time.Time, maxRelevance float64) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE last_accessed_at < ? AND relevance_score < ?`, c.collectionName)

	result, err := c.db.ExecContext(ctx, query, cutoff.UTC(), maxRelevance)
	if err != nil {
		return 0, fmt.Errorf("DeleteStale: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteStale: %w", err)
	}
	return deleted, nil
}

// Delete deletes a record by key.
func (c *Client) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE record_key = ?", c.collectionName)

	result, err := c.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("Delete: %w", storage.ErrNotFound)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a record from a row or rows.
func scanRecord(scanner rowScanner) (*storage.Record, error) {
	var rec storage.Record
	var value, embedding, metadata sql.NullString

	err := scanner.Scan(
		&rec.ID,
		&rec.Key,
		&rec.Category,
		&value,
		&rec.Content,
		&embedding,
		&rec.RelevanceScore,
		&metadata,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.LastAccessedAt,
		&rec.Version,
	)
	if err != nil {
		return nil, err
	}

	if rec.Value, err = storage.DecodeValue(value.String); err != nil {
		return nil, err
	}
	if rec.Embedding, err = storage.DecodeEmbedding(embedding.String); err != nil {
		return nil, err
	}
	if rec.Metadata, err = storage.DecodeMetadata(metadata.String); err != nil {
		return nil, err
	}

	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	rec.LastAccessedAt = rec.LastAccessedAt.UTC()

	return &rec, nil
}
