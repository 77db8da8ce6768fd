package recipe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecipe_EmbeddingText(t *testing.T) {
	t.Parallel()

	r := Recipe{ID: "r1", Title: "Vegan Lasagna", Ingredients: "noodles, tofu", Instructions: "Layer noodles."}
	want := "Vegan Lasagna noodles, tofu Layer noodles."
	if got := r.EmbeddingText(); got != want {
		t.Errorf("EmbeddingText() = %q, want %q", got, want)
	}
}

func TestRecipe_EmbeddingText_EmptyFields(t *testing.T) {
	t.Parallel()

	r := Recipe{ID: "r2"}
	if got := r.EmbeddingText(); got != "  " {
		t.Errorf("EmbeddingText() = %q, want two spaces", got)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   string
		wantLen int
		wantErr bool
		invalid bool
	}{
		{
			name:    "valid array",
			input:   `[{"id":"r1","title":"Soup","ingredients":"water","instructions":"Boil."},{"id":"r2","title":"Tea"}]`,
			wantLen: 2,
		},
		{name: "empty array", input: `[]`, wantLen: 0},
		{name: "missing id", input: `[{"title":"No id"}]`, wantErr: true, invalid: true},
		{name: "blank id", input: `[{"id":"   ","title":"Blank"}]`, wantErr: true, invalid: true},
		{name: "not an array", input: `{"id":"r1"}`, wantErr: true},
		{name: "malformed", input: `[{"id":`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Load(strings.NewReader(tc.input))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d recipes", len(got))
				}
				if tc.invalid && !errors.Is(err, ErrInvalidRecord) {
					t.Errorf("expected ErrInvalidRecord, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tc.wantLen {
				t.Errorf("want %d recipes, got %d", tc.wantLen, len(got))
			}
		})
	}
}

func TestLoad_IDsAreVerbatim(t *testing.T) {
	t.Parallel()

	got, err := Load(strings.NewReader(`[{"id":" r1","title":"Padded"},{"id":"r1","title":"Plain"}]`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[0].ID != " r1" || got[1].ID != "r1" {
		t.Errorf("ids must not be rewritten, got %q and %q", got[0].ID, got[1].ID)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "knowledgebase.json")
	content := `[{"id":"r1","title":"Vegan Lasagna","ingredients":"noodles","instructions":"Layer noodles..."}]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Vegan Lasagna" {
		t.Errorf("unexpected recipes: %+v", got)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
