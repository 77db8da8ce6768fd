// Package rag defines the retrieval-augmented generation contracts used by
// chefai: text embedding, vector storage of recipe records, and top-k
// retrieval. Concrete backends (Qdrant here, SQLite in package store)
// satisfy these interfaces so the pipeline never depends on one of them.
package rag

import (
	"context"
	"errors"

	"github.com/54b3r/chefai-go/internal/recipe"
)

const (
	// DefaultDimensions is the embedding size shared by ingestion and
	// retrieval. Index creation and every embedding call are checked against it.
	DefaultDimensions = 384

	// DefaultTopK is the number of matches returned per query.
	DefaultTopK = 3

	// DefaultIndex is the index name used when VECTOR_INDEX is unset.
	DefaultIndex = "cookbook"
)

// Metric is the similarity function an index is created with.
type Metric string

// MetricCosine ranks vectors by cosine similarity.
const MetricCosine Metric = "cosine"

// ErrDimensionMismatch is returned when an embedding does not have the
// dimensionality the index was created with.
var ErrDimensionMismatch = errors.New("rag: embedding dimension mismatch")

// Match is a single retrieval result. Matches are ephemeral and are always
// returned ordered by descending Score.
type Match struct {
	// ID is the recipe ID the vector was upserted under.
	ID string `json:"id"`
	// Score is the cosine similarity between the query and the stored vector.
	Score float32 `json:"score"`
	// Recipe is the full record stored alongside the vector.
	Recipe recipe.Recipe `json:"recipe"`
}

// Embedder converts text into dense vectors.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists (id, vector, recipe) triples in a named index and
// answers nearest-neighbour queries against it. A store is bound to a
// single index at construction; ListIndexes and CreateIndex operate on
// the backend as a whole.
type VectorStore interface {
	// Index returns the name of the index this store reads and writes.
	Index() string

	// ListIndexes returns the names of every index known to the backend.
	ListIndexes(ctx context.Context) ([]string, error)

	// CreateIndex creates an index with the given dimensionality and metric.
	CreateIndex(ctx context.Context, name string, dimension int, metric Metric) error

	// Upsert inserts or replaces the entry keyed by id. Re-upserting an id
	// overwrites both its vector and its recipe.
	Upsert(ctx context.Context, id string, vector []float32, r recipe.Recipe) error

	// Query returns up to topK matches ordered by descending similarity.
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)

	// Close releases any resources held by the store.
	Close() error
}

// Retriever fetches the recipes most relevant to a free-text query.
type Retriever interface {
	// Retrieve embeds query and returns the top-k matches, best first.
	Retrieve(ctx context.Context, query string) ([]Match, error)
}
