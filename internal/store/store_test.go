package store

import (
	"context"
	"errors"
	"testing"

	"github.com/54b3r/chefai-go/internal/rag"
	"github.com/54b3r/chefai-go/internal/rag/ragtest"
	"github.com/54b3r/chefai-go/internal/recipe"
)

// openTestStore opens an in-memory SQLiteStore with its index created.
func openTestStore(t *testing.T, dim int) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:", "cookbook")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if _, err := rag.EnsureIndex(context.Background(), s, dim); err != nil {
		t.Fatalf("ensure index: %v", err)
	}
	return s
}

func Test_Store_ListAndCreateIndex(t *testing.T) {
	t.Parallel()
	s, err := Open(":memory:", "cookbook")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	names, err := s.ListIndexes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("want no indexes, got %v", names)
	}

	created, err := rag.EnsureIndex(ctx, s, 4)
	if err != nil || !created {
		t.Fatalf("EnsureIndex: created=%v err=%v", created, err)
	}
	created, err = rag.EnsureIndex(ctx, s, 4)
	if err != nil || created {
		t.Fatalf("EnsureIndex second call: created=%v err=%v", created, err)
	}

	names, _ = s.ListIndexes(ctx)
	if len(names) != 1 || names[0] != "cookbook" {
		t.Errorf("want [cookbook], got %v", names)
	}
}

func Test_Store_CreateIndexRejectsUnknownMetric(t *testing.T) {
	t.Parallel()
	s, _ := Open(":memory:", "x")
	t.Cleanup(func() { _ = s.Close() })

	if err := s.CreateIndex(context.Background(), "x", 4, rag.Metric("dot")); err == nil {
		t.Error("expected error for unsupported metric")
	}
}

func Test_Store_UpsertWithoutIndex(t *testing.T) {
	t.Parallel()
	s, _ := Open(":memory:", "missing")
	t.Cleanup(func() { _ = s.Close() })

	err := s.Upsert(context.Background(), "r1", []float32{1, 0}, recipe.Recipe{ID: "r1"})
	if !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("want ErrIndexNotFound, got %v", err)
	}
	if _, err := s.Query(context.Background(), []float32{1, 0}, 3); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("query: want ErrIndexNotFound, got %v", err)
	}
}

func Test_Store_UpsertIsIdempotent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 2)
	ctx := context.Background()

	if err := s.Upsert(ctx, "r1", []float32{1, 0}, recipe.Recipe{ID: "r1", Title: "Old"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, "r1", []float32{0, 1}, recipe.Recipe{ID: "r1", Title: "New"}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 entry after re-upsert, got %d", n)
	}

	got, err := s.Query(ctx, []float32{0, 1}, 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got[0].Recipe.Title != "New" {
		t.Errorf("metadata not overwritten: %+v", got[0])
	}
	if got[0].Score < 0.999 {
		t.Errorf("vector not overwritten: score %v", got[0].Score)
	}
}

func Test_Store_UpsertDimensionMismatch(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 3)

	err := s.Upsert(context.Background(), "r1", []float32{1, 0}, recipe.Recipe{ID: "r1"})
	if !errors.Is(err, rag.ErrDimensionMismatch) {
		t.Errorf("want ErrDimensionMismatch, got %v", err)
	}
}

func Test_Store_QueryOrderAndLimit(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 2)
	ctx := context.Background()

	entries := map[string][]float32{
		"east":      {1, 0},
		"northeast": {1, 1},
		"north":     {0, 1},
		"west":      {-1, 0},
	}
	for id, v := range entries {
		if err := s.Upsert(ctx, id, v, recipe.Recipe{ID: id, Title: id}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	got, err := s.Query(ctx, []float32{1, 0.1}, 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 matches, got %d", len(got))
	}
	want := []string{"east", "northeast", "north"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("match[%d]: want %s, got %s", i, id, got[i].ID)
		}
		if got[i].Recipe.ID != id {
			t.Errorf("match[%d]: recipe ID not populated", i)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("scores not descending at %d: %v > %v", i, got[i].Score, got[i-1].Score)
		}
	}
}

func Test_Store_IndexesAreIsolated(t *testing.T) {
	t.Parallel()
	a := openTestStore(t, 2)
	ctx := context.Background()
	if err := a.Upsert(ctx, "r1", []float32{1, 0}, recipe.Recipe{ID: "r1"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Same connection pool, different index.
	b := &SQLiteStore{db: a.db, index: "other"}
	if err := b.CreateIndex(ctx, "other", 2, rag.MetricCosine); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := b.Query(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("index other should be empty, got %d matches", len(got))
	}
}

// Test_Store_RecallOwnText ingests recipes and queries each with its own
// embedding text: the recipe must come back in the top 3 with high similarity.
func Test_Store_RecallOwnText(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, rag.DefaultDimensions)
	ctx := context.Background()
	emb := &ragtest.HashEmbedder{}

	recipes := []recipe.Recipe{
		{ID: "r1", Title: "Vegan Lasagna", Ingredients: "lasagna noodles, tofu ricotta, spinach, marinara", Instructions: "Layer noodles with sauce and tofu, bake 45 minutes."},
		{ID: "r2", Title: "Mushroom Risotto", Ingredients: "arborio rice, mushrooms, stock, parmesan", Instructions: "Toast rice, add stock slowly, stir in mushrooms."},
		{ID: "r3", Title: "Chicken Curry", Ingredients: "chicken, curry paste, coconut milk", Instructions: "Brown chicken, simmer in curry and coconut milk."},
		{ID: "r4", Title: "Pancakes", Ingredients: "flour, milk, eggs, sugar", Instructions: "Whisk batter, fry on a hot griddle."},
	}
	for _, r := range recipes {
		vecs, _ := emb.Embed(ctx, []string{r.EmbeddingText()})
		if err := s.Upsert(ctx, r.ID, vecs[0], r); err != nil {
			t.Fatalf("upsert %s: %v", r.ID, err)
		}
	}

	retriever, err := rag.NewRetriever(emb, s, rag.DefaultTopK, rag.DefaultDimensions)
	if err != nil {
		t.Fatalf("retriever: %v", err)
	}
	for _, r := range recipes {
		got, err := retriever.Retrieve(ctx, r.EmbeddingText())
		if err != nil {
			t.Fatalf("retrieve %s: %v", r.ID, err)
		}
		found := false
		for _, m := range got {
			if m.ID == r.ID && m.Score > 0.99 {
				found = true
			}
		}
		if !found {
			t.Errorf("recipe %s not recalled in top %d: %+v", r.ID, rag.DefaultTopK, got)
		}
	}
}

func TestEncodeDecodeVector(t *testing.T) {
	t.Parallel()
	in := []float32{0, 1.5, -2.25, 3e-7}
	out := decodeVector(encodeVector(in))
	if len(out) != len(in) {
		t.Fatalf("length: want %d, got %d", len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("[%d]: want %v, got %v", i, in[i], out[i])
		}
	}
}
