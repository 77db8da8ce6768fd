package rag

import (
	"context"
	"fmt"
)

// DefaultRetriever implements the Retriever interface by combining an Embedder
// and a VectorStore. It embeds the query at retrieval time and delegates
// similarity search to the store.
type DefaultRetriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// store performs the vector similarity search.
	store VectorStore

	// topK is the number of matches returned per query.
	topK int

	// dimension is the expected query vector size; 0 disables the check.
	dimension int
}

// NewRetriever constructs a DefaultRetriever. topK defaults to [DefaultTopK]
// and dimension to [DefaultDimensions] when zero.
func NewRetriever(embedder Embedder, store VectorStore, topK, dimension int) (*DefaultRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if dimension == 0 {
		dimension = DefaultDimensions
	}
	return &DefaultRetriever{
		embedder:  embedder,
		store:     store,
		topK:      topK,
		dimension: dimension,
	}, nil
}

// Retrieve embeds the query and returns at most topK matches ordered by
// descending similarity. An empty result is not an error.
func (r *DefaultRetriever) Retrieve(ctx context.Context, query string) ([]Match, error) {
	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}
	if err := CheckDimensions(embeddings[0], r.dimension); err != nil {
		return nil, err
	}

	matches, err := r.store.Query(ctx, embeddings[0], r.topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	SortMatches(matches)
	if len(matches) > r.topK {
		matches = matches[:r.topK]
	}
	return matches, nil
}
