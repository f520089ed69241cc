// Package manifest provides a SQLite-backed record of what was ingested and
// with which embedding configuration. Nothing in the vector store itself
// enforces that the query service embeds with the same model used at
// ingestion time — the manifest closes that gap: the ingestion pipeline
// writes a schema record (model, dimensionality, metric) per collection, and
// the query service validates it at startup, failing fast on mismatch.
//
// It also journals per-source ingestion runs for operator visibility.
package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// ErrNoSchema is returned by Schema when no record exists for the collection
// — typically because ingestion has never run against it.
var ErrNoSchema = errors.New("manifest: no schema recorded for collection")

// CollectionSchema pins the embedding configuration a collection was
// ingested with.
type CollectionSchema struct {
	// Collection is the vector store collection name.
	Collection string
	// EmbeddingModel is the model identifier used to embed the rows.
	EmbeddingModel string
	// Dimensions is the embedding vector size.
	Dimensions int
	// Metric is the distance metric the collection was created with.
	Metric string
	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time
}

// Run is one journalled ingestion outcome for a single source file.
type Run struct {
	// Dataset is the logical dataset name.
	Dataset string
	// Path is the source file path.
	Path string
	// Rows is the number of rows ingested.
	Rows int
	// Status is "ok", "skipped", or "failed".
	Status string
	// CreatedAt is when the run was journalled.
	CreatedAt time.Time
}

// Store is the SQLite-backed manifest. It is safe for concurrent use.
type Store struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultPath returns the default manifest database path,
// ~/.kbrag/manifest.db, creating the directory if needed.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("manifest: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".kbrag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("manifest: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "manifest.db"), nil
}

// Open opens (or creates) a manifest Store at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS collection_schema (
    collection       TEXT    PRIMARY KEY,
    embedding_model  TEXT    NOT NULL,
    dimensions       INTEGER NOT NULL,
    metric           TEXT    NOT NULL,
    updated_at       INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE TABLE IF NOT EXISTS ingest_runs (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    dataset      TEXT    NOT NULL,
    path         TEXT    NOT NULL,
    rows         INTEGER NOT NULL,
    status       TEXT    NOT NULL CHECK(status IN ('ok','skipped','failed')),
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_dataset_created
    ON ingest_runs (dataset, created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("manifest: migrate: %w", err)
	}
	return nil
}

// SetSchema records (or replaces) the embedding configuration for a
// collection. The ingestion pipeline calls this once per run.
func (s *Store) SetSchema(ctx context.Context, cs CollectionSchema) error {
	const q = `
INSERT INTO collection_schema (collection, embedding_model, dimensions, metric, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(collection) DO UPDATE SET
    embedding_model = excluded.embedding_model,
    dimensions      = excluded.dimensions,
    metric          = excluded.metric,
    updated_at      = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, q,
		cs.Collection, cs.EmbeddingModel, cs.Dimensions, cs.Metric, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("manifest: set schema: %w", err)
	}
	return nil
}

// Schema returns the recorded embedding configuration for a collection, or
// ErrNoSchema when none exists.
func (s *Store) Schema(ctx context.Context, collection string) (CollectionSchema, error) {
	const q = `
SELECT embedding_model, dimensions, metric, updated_at
FROM   collection_schema
WHERE  collection = ?`

	cs := CollectionSchema{Collection: collection}
	var ts int64
	err := s.db.QueryRowContext(ctx, q, collection).
		Scan(&cs.EmbeddingModel, &cs.Dimensions, &cs.Metric, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return CollectionSchema{}, fmt.Errorf("%w: %s", ErrNoSchema, collection)
	}
	if err != nil {
		return CollectionSchema{}, fmt.Errorf("manifest: schema: %w", err)
	}
	cs.UpdatedAt = time.Unix(ts, 0)
	return cs, nil
}

// Validate compares the recorded schema for a collection against the
// configuration the caller is about to use. A missing record returns
// ErrNoSchema (callers may tolerate it); any field mismatch is an error.
func (s *Store) Validate(ctx context.Context, want CollectionSchema) error {
	got, err := s.Schema(ctx, want.Collection)
	if err != nil {
		return err
	}
	if got.EmbeddingModel != want.EmbeddingModel {
		return fmt.Errorf("manifest: collection %q was ingested with model %q but the service is configured with %q",
			want.Collection, got.EmbeddingModel, want.EmbeddingModel)
	}
	if got.Dimensions != want.Dimensions {
		return fmt.Errorf("manifest: collection %q was ingested with %d dimensions but the service is configured with %d",
			want.Collection, got.Dimensions, want.Dimensions)
	}
	if got.Metric != want.Metric {
		return fmt.Errorf("manifest: collection %q was ingested with metric %q but the service is configured with %q",
			want.Collection, got.Metric, want.Metric)
	}
	return nil
}

// RecordRun journals one source's ingestion outcome. It satisfies the
// ingest.Recorder interface.
func (s *Store) RecordRun(ctx context.Context, dataset, path string, rows int, status string) error {
	const q = `INSERT INTO ingest_runs (dataset, path, rows, status, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, dataset, path, rows, status, time.Now().Unix()); err != nil {
		return fmt.Errorf("manifest: record run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent n journalled runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, n int) ([]Run, error) {
	const q = `
SELECT dataset, path, rows, status, created_at
FROM   ingest_runs
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("manifest: recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var ts int64
		if err := rows.Scan(&r.Dataset, &r.Path, &r.Rows, &r.Status, &ts); err != nil {
			return nil, fmt.Errorf("manifest: recent runs scan: %w", err)
		}
		r.CreatedAt = time.Unix(ts, 0)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("manifest: recent runs rows: %w", err)
	}
	return runs, nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("manifest: close: %w", err)
	}
	return nil
}
