// Package postgres provides the PostgreSQL implementation of storage.RecordStore.
//
// Embeddings are stored in a pgvector column so they can be indexed by the
// database, while ranking is still computed in Go by the memory package.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/lifemate/lifemate-go/pkg/storage"
)

const recordColumns = `id, record_key, category, value, content, embedding, relevance_score,
	metadata, created_at, updated_at, last_accessed_at, version`

// Client is a PostgreSQL + pgvector client.
type Client struct {
	db             *sql.DB
	collectionName string
	dimensions     int
}

// Config contains PostgreSQL configuration.
type Config struct {
	// DSN overrides the individual connection fields when set.
	DSN string

	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	CollectionName string

	// EmbeddingDims is the fixed vector column width.
	EmbeddingDims int
}

// NewClient creates a new PostgreSQL client.
func NewClient(cfg *Config) (*Client, error) {
	dsn := cfg.DSN
	if dsn == "" {
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)
	}

	collection := cfg.CollectionName
	if collection == "" {
		collection = "memories"
	}
	dims := cfg.EmbeddingDims
	if dims <= 0 {
		dims = 100
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	client := &Client{
		db:             db,
		collectionName: collection,
		dimensions:     dims,
	}

	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables initializes the pgvector extension and the table.
func (c *Client) initTables(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("initTables: create extension: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			record_key VARCHAR(512) NOT NULL UNIQUE,
			category VARCHAR(128) NOT NULL DEFAULT 'general',
			value TEXT,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			relevance_score DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			last_accessed_at TIMESTAMPTZ NOT NULL,
			version BIGINT NOT NULL DEFAULT 1
		)
	`, c.collectionName, c.dimensions)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: create table: %w", err)
	}

	for _, column := range []string{"category", "last_accessed_at"} {
		indexQuery := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)`,
			c.collectionName, column, c.collectionName, column)
		if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
			return fmt.Errorf("initTables: create index: %w", err)
		}
	}

	return nil
}

// Upsert inserts a record or replaces the one with the same key.
func (c *Client) Upsert(ctx context.Context, rec *storage.Record, opts *storage.UpsertOptions) (*storage.Record, error) {
	if opts == nil {
		opts = &storage.UpsertOptions{}
	}

	value, err := storage.EncodeJSON(rec.Value)
	if err != nil {
		return nil, fmt.Errorf("Upsert: %w", err)
	}
	metadata, err := storage.EncodeJSON(rec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("Upsert: %w", err)
	}

	relevanceClause := ""
	if opts.ResetRelevance {
		relevanceClause = "relevance_score = EXCLUDED.relevance_score,"
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s
		(id, record_key, category, value, content, embedding, relevance_score,
		 metadata, created_at, updated_at, last_accessed_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
		ON CONFLICT (record_key) DO UPDATE SET
			category = EXCLUDED.category,
			value = EXCLUDED.value,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at,
			last_accessed_at = EXCLUDED.last_accessed_at,
			%[2]s
			version = %[1]s.version + 1
		RETURNING %[3]s
	`, c.collectionName, relevanceClause, recordColumns)

	stored, err := scanRecord(c.db.QueryRowContext(ctx, query,
		rec.ID,
		rec.Key,
		rec.Category,
		value,
		rec.Content,
		c.toVector(rec.Embedding),
		rec.RelevanceScore,
		metadata,
		rec.CreatedAt.UTC(),
		rec.UpdatedAt.UTC(),
		rec.LastAccessedAt.UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("Upsert: %w", err)
	}
	return stored, nil
}

// Get retrieves a record by ID.
func (c *Client) Get(ctx context.Context, id int64) (*storage.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, recordColumns, c.collectionName)
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
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE record_key = $1`, recordColumns, c.collectionName)
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

	whereClause, args := buildCategoryClause(opts.Categories, 1)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		%s
		ORDER BY relevance_score DESC, updated_at DESC, id
	`, recordColumns, c.collectionName, whereClause)
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
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

	query := fmt.Sprintf(`UPDATE %s SET last_accessed_at = $1 WHERE id = ANY($2)`, c.collectionName)
	if _, err := c.db.ExecContext(ctx, query, at.UTC(), pq.Array(ids)); err != nil {
		return fmt.Errorf("Touch: %w", err)
	}
	return nil
}

// SetRelevance performs a compare-and-set on the record version.
func (c *Client) SetRelevance(ctx context.Context, id int64, relevance float64, expectedVersion int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET relevance_score = $1, updated_at = $2, version = version + 1
		WHERE id = $3 AND version = $4
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
	query := fmt.Sprintf(`DELETE FROM %s WHERE last_accessed_at < $1 AND relevance_score < $2`, c.collectionName)

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
	query := fmt.Sprintf("DELETE FROM %s WHERE record_key = $1", c.collectionName)

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

// toVector converts an embedding to a pgvector value of the column width.
func (c *Client) toVector(embedding []float64) pgvector.Vector {
	vec := make([]float32, c.dimensions)
	for i := 0; i < len(embedding) && i < c.dimensions; i++ {
		vec[i] = float32(embedding[i])
	}
	return pgvector.NewVector(vec)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(scanner rowScanner) (*storage.Record, error) {
	var rec storage.Record
	var value, metadata sql.NullString
	var embedding pgvector.Vector

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
	if rec.Metadata, err = storage.DecodeMetadata(metadata.String); err != nil {
		return nil, err
	}

	slice := embedding.Slice()
	rec.Embedding = make([]float64, len(slice))
	for i, v := range slice {
		rec.Embedding[i] = float64(v)
	}

	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	rec.LastAccessedAt = rec.LastAccessedAt.UTC()

	return &rec, nil
}
