// Package store provides a SQLite-backed implementation of rag.VectorStore
// for running chefai without a Qdrant server. Vectors are stored as
// little-endian float32 blobs and searched by brute-force cosine similarity,
// which is adequate for recipe knowledge bases of a few thousand entries.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/chefai-go/internal/rag"
	"github.com/54b3r/chefai-go/internal/recipe"
)

// ErrIndexNotFound is returned when reading or writing an index that has not
// been created.
var ErrIndexNotFound = errors.New("store: index not found")

// SQLiteStore is a rag.VectorStore backed by a local SQLite database.
// It is bound to one index; other indexes in the same file are untouched.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
	// index is the index this store reads and writes.
	index string
}

// DefaultDBPath returns the default path for the local vector database.
// It resolves to ~/.chefai/vectors.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".chefai")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "vectors.db"), nil
}

// Open opens (or creates) the database at path, runs the schema migration
// and returns a store bound to index. Use ":memory:" in tests.
func Open(path, index string) (*SQLiteStore, error) {
	if index == "" {
		index = rag.DefaultIndex
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, index: index}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS vector_indexes (
    name         TEXT    PRIMARY KEY,
    dimension    INTEGER NOT NULL CHECK(dimension > 0),
    metric       TEXT    NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE TABLE IF NOT EXISTS vectors (
    index_name   TEXT    NOT NULL REFERENCES vector_indexes(name),
    id           TEXT    NOT NULL,
    vector       BLOB    NOT NULL,
    title        TEXT    NOT NULL,
    ingredients  TEXT    NOT NULL,
    instructions TEXT    NOT NULL,
    updated_at   INTEGER NOT NULL,
    PRIMARY KEY (index_name, id)
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Index returns the index name this store is bound to.
func (s *SQLiteStore) Index() string { return s.index }

// ListIndexes returns every index created in the database.
func (s *SQLiteStore) ListIndexes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM vector_indexes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list indexes: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("store: list indexes scan: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list indexes rows: %w", err)
	}
	return names, nil
}

// CreateIndex registers a new index. Only the cosine metric is supported.
func (s *SQLiteStore) CreateIndex(ctx context.Context, name string, dimension int, metric rag.Metric) error {
	if metric != rag.MetricCosine {
		return fmt.Errorf("store: unsupported metric %q", metric)
	}
	const q = `INSERT INTO vector_indexes (name, dimension, metric, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, name, dimension, string(metric), time.Now().Unix()); err != nil {
		return fmt.Errorf("store: create index %q: %w", name, err)
	}
	return nil
}

// Upsert inserts or replaces the entry for id in the bound index.
func (s *SQLiteStore) Upsert(ctx context.Context, id string, vector []float32, r recipe.Recipe) error {
	dim, err := s.dimension(ctx)
	if err != nil {
		return err
	}
	if err := rag.CheckDimensions(vector, dim); err != nil {
		return fmt.Errorf("store: upsert %q: %w", id, err)
	}

	const q = `
INSERT INTO vectors (index_name, id, vector, title, ingredients, instructions, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (index_name, id) DO UPDATE SET
    vector       = excluded.vector,
    title        = excluded.title,
    ingredients  = excluded.ingredients,
    instructions = excluded.instructions,
    updated_at   = excluded.updated_at`
	_, err = s.db.ExecContext(ctx, q, s.index, id, encodeVector(vector),
		r.Title, r.Ingredients, r.Instructions, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: upsert %q: %w", id, err)
	}
	return nil
}

// Query scores every vector in the bound index against vector and returns
// the topK best matches, highest similarity first.
func (s *SQLiteStore) Query(ctx context.Context, vector []float32, topK int) ([]rag.Match, error) {
	dim, err := s.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if err := rag.CheckDimensions(vector, dim); err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}

	const q = `SELECT id, vector, title, ingredients, instructions FROM vectors WHERE index_name = ?`
	rows, err := s.db.QueryContext(ctx, q, s.index)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	var matches []rag.Match
	for rows.Next() {
		var (
			m    rag.Match
			blob []byte
		)
		if err := rows.Scan(&m.ID, &blob, &m.Recipe.Title, &m.Recipe.Ingredients, &m.Recipe.Instructions); err != nil {
			return nil, fmt.Errorf("store: query scan: %w", err)
		}
		m.Recipe.ID = m.ID
		m.Score = rag.Cosine(vector, decodeVector(blob))
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: query rows: %w", err)
	}

	rag.SortMatches(matches)
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count returns the number of entries in the bound index.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors WHERE index_name = ?`, s.index).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// dimension returns the dimensionality of the bound index.
func (s *SQLiteStore) dimension(ctx context.Context) (int, error) {
	var dim int
	err := s.db.QueryRowContext(ctx, `SELECT dimension FROM vector_indexes WHERE name = ?`, s.index).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", ErrIndexNotFound, s.index)
	}
	if err != nil {
		return 0, fmt.Errorf("store: read index %q: %w", s.index, err)
	}
	return dim, nil
}

// encodeVector packs v as little-endian float32 values.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
