package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/54b3r/chefai-go/internal/rag"
	"github.com/54b3r/chefai-go/internal/rag/ragtest"
	"github.com/54b3r/chefai-go/internal/recipe"
	"github.com/54b3r/chefai-go/internal/store"
)

const kbJSON = `[
  {"id": "r1", "title": "Vegan Lasagna", "ingredients": "noodles, tofu ricotta, spinach, tomato sauce", "instructions": "Layer noodles with sauce and tofu ricotta, then bake for 45 minutes."},
  {"id": "r2", "title": "Pancakes", "ingredients": "flour, milk, eggs, sugar", "instructions": "Whisk the batter and fry on a hot griddle."},
  {"id": "r3", "title": "Guacamole", "ingredients": "avocado, lime, onion, cilantro", "instructions": "Mash avocado with lime juice and fold in the rest."}
]`

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(":memory:", "cookbook")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func loadKB(t *testing.T) []recipe.Recipe {
	t.Helper()
	recipes, err := recipe.Load(strings.NewReader(kbJSON))
	if err != nil {
		t.Fatalf("recipe.Load: %v", err)
	}
	return recipes
}

func Test_Pipeline_IngestCreatesIndexThenReuses(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	p, err := NewPipeline(&ragtest.HashEmbedder{}, s, &Config{BatchSize: 2})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	var msgs []string
	stats, err := p.Ingest(context.Background(), loadKB(t), func(m string) { msgs = append(msgs, m) })
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !stats.Created || stats.Upserted != 3 || stats.Index != "cookbook" {
		t.Errorf("first run stats = %+v", stats)
	}
	if !strings.Contains(msgs[0], "created") {
		t.Errorf("first progress message should report creation: %q", msgs[0])
	}

	stats, err = p.Ingest(context.Background(), loadKB(t), nil)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if stats.Created {
		t.Error("second run must reuse the existing index")
	}

	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("re-ingest should overwrite, not duplicate: got %d entries", n)
	}
}

// Every ingested record must come back in the top 3 when queried with its
// own embedding text.
func Test_Pipeline_RecallOwnText(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	emb := &ragtest.HashEmbedder{}
	p, _ := NewPipeline(emb, s, nil)
	recipes := loadKB(t)
	if _, err := p.Ingest(context.Background(), recipes, nil); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	r, err := rag.NewRetriever(emb, s, 0, 0)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}
	for _, rec := range recipes {
		matches, err := r.Retrieve(context.Background(), rec.EmbeddingText())
		if err != nil {
			t.Fatalf("Retrieve: %v", err)
		}
		if len(matches) == 0 || matches[0].ID != rec.ID || matches[0].Score < 0.99 {
			t.Errorf("recipe %s: top match = %+v", rec.ID, matches)
		}
	}

	matches, _ := r.Retrieve(context.Background(), "vegan lasagna recipe")
	if matches[0].ID != "r1" {
		t.Errorf("vegan lasagna query top match = %s, want r1", matches[0].ID)
	}
}

// failingEmbedder errors after a number of successful calls.
type failingEmbedder struct {
	inner rag.Embedder
	okFor int
	calls int
}

func (f *failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls > f.okFor {
		return nil, errors.New("embedding service unavailable")
	}
	return f.inner.Embed(ctx, texts)
}

func Test_Pipeline_EmbeddingFailureAborts(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	emb := &failingEmbedder{inner: &ragtest.HashEmbedder{}, okFor: 1}
	p, _ := NewPipeline(emb, s, &Config{BatchSize: 1})

	stats, err := p.Ingest(context.Background(), loadKB(t), nil)
	if err == nil || !strings.Contains(err.Error(), "unavailable") {
		t.Fatalf("want embedding error, got %v", err)
	}
	if stats.Upserted != 1 {
		t.Errorf("want 1 upsert before abort, got %d", stats.Upserted)
	}
}

func Test_Pipeline_DimensionMismatch(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	p, _ := NewPipeline(&ragtest.HashEmbedder{Dimensions: 16}, s, &Config{Dimensions: 384})

	_, err := p.Ingest(context.Background(), loadKB(t), nil)
	if !errors.Is(err, rag.ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch, got %v", err)
	}
}

func Test_Pipeline_IngestSource_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "knowledgebase.json")
	if err := os.WriteFile(path, []byte(kbJSON), 0o600); err != nil {
		t.Fatal(err)
	}

	p, _ := NewPipeline(&ragtest.HashEmbedder{}, newStore(t), nil)
	stats, err := p.IngestSource(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("IngestSource: %v", err)
	}
	if stats.Upserted != 3 {
		t.Errorf("upserted = %d", stats.Upserted)
	}
}

func Test_Pipeline_IngestSource_HTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/kb.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "chefai-go/") {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(kbJSON))
	}))
	t.Cleanup(srv.Close)

	p, _ := NewPipeline(&ragtest.HashEmbedder{}, newStore(t), nil)
	stats, err := p.IngestSource(context.Background(), srv.URL+"/kb.json", nil)
	if err != nil {
		t.Fatalf("IngestSource: %v", err)
	}
	if stats.Upserted != 3 {
		t.Errorf("upserted = %d", stats.Upserted)
	}

	if _, err := p.IngestSource(context.Background(), srv.URL+"/missing.json", nil); err == nil {
		t.Error("expected error for 404")
	}
}

func Test_Pipeline_InvalidRecord(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kb.json")
	if err := os.WriteFile(path, []byte(`[{"id": "", "title": "nameless"}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	p, _ := NewPipeline(&ragtest.HashEmbedder{}, newStore(t), nil)
	if _, err := p.IngestSource(context.Background(), path, nil); !errors.Is(err, recipe.ErrInvalidRecord) {
		t.Fatalf("want ErrInvalidRecord, got %v", err)
	}
}

func Test_NewPipeline_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewPipeline(nil, newStore(t), nil); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewPipeline(&ragtest.HashEmbedder{}, nil, nil); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestIsRemote(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{
		"https://example.com/kb.json": true,
		"http://localhost/kb.json":    true,
		"knowledgebase.json":          false,
		"/abs/path.json":              false,
		"./http/kb.json":              false,
	} {
		if got := IsRemote(in); got != want {
			t.Errorf("IsRemote(%q) = %v", in, got)
		}
	}
}
