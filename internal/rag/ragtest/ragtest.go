// Package ragtest provides deterministic test doubles for the rag contracts.
package ragtest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/54b3r/chefai-go/internal/rag"
)

// HashEmbedder is a bag-of-words embedder: each lower-cased word is hashed
// into one of Dimensions buckets and the result is L2-normalised. Identical
// text always yields identical vectors and texts sharing words score high.
type HashEmbedder struct {
	// Dimensions is the output size. Zero means rag.DefaultDimensions.
	Dimensions int
	// Calls counts Embed invocations.
	Calls int
}

// Embed implements rag.Embedder.
func (h *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	h.Calls++
	dim := h.Dimensions
	if dim == 0 {
		dim = rag.DefaultDimensions
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t, dim)
	}
	return out, nil
}

func hashVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(dim)]++ //nolint:gosec // dim is a small positive int
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}
