package rag

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
)

// EnsureIndex creates the store's index with the given dimensionality and a
// cosine metric if the backend does not list it yet. An existing index is
// left untouched. It reports whether the index was created.
func EnsureIndex(ctx context.Context, store VectorStore, dimension int) (bool, error) {
	names, err := store.ListIndexes(ctx)
	if err != nil {
		return false, fmt.Errorf("rag: list indexes: %w", err)
	}
	if slices.Contains(names, store.Index()) {
		return false, nil
	}
	if err := store.CreateIndex(ctx, store.Index(), dimension, MetricCosine); err != nil {
		return false, fmt.Errorf("rag: create index %q: %w", store.Index(), err)
	}
	return true, nil
}

// CheckDimensions returns ErrDimensionMismatch when vec does not have want elements.
func CheckDimensions(vec []float32, want int) error {
	if want > 0 && len(vec) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), want)
	}
	return nil
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or with zero magnitude score 0.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// SortMatches orders matches by descending score in place.
func SortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}
