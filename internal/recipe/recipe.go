// Package recipe defines the Recipe record held in the knowledge base and
// the loader that reads a knowledge-base file into memory.
//
// The knowledge base is a JSON array of objects:
//
//	[{"id": "r1", "title": "...", "ingredients": "...", "instructions": "..."}]
//
// Records are loaded wholesale; there is no incremental update format.
package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// ErrInvalidRecord is returned when a knowledge-base entry fails validation.
var ErrInvalidRecord = errors.New("recipe: invalid record")

// Recipe is a single knowledge-base entry. The vector store keeps a full copy
// of it alongside the embedding so retrieval never needs the source file.
type Recipe struct {
	// ID uniquely identifies the recipe and keys the vector store entry.
	// It is used verbatim: surrounding whitespace is part of the key.
	ID string `json:"id" validate:"notblank"`
	// Title is the human-readable recipe name.
	Title string `json:"title"`
	// Ingredients is the free-text ingredient list.
	Ingredients string `json:"ingredients"`
	// Instructions is the free-text preparation method.
	Instructions string `json:"instructions"`
}

// EmbeddingText returns the text that is embedded for this recipe:
// title, ingredients and instructions joined by single spaces.
func (r Recipe) EmbeddingText() string {
	return r.Title + " " + r.Ingredients + " " + r.Instructions
}

// validate is shared across loads; validator caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// Load decodes a knowledge-base JSON array from r and validates every record.
// The first invalid record aborts the load with an error naming its position.
func Load(r io.Reader) ([]Recipe, error) {
	var recipes []Recipe
	if err := json.NewDecoder(r).Decode(&recipes); err != nil {
		return nil, fmt.Errorf("recipe: decode knowledge base: %w", err)
	}

	for i := range recipes {
		if err := validate.Struct(recipes[i]); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidRecord, i, err)
		}
	}

	return recipes, nil
}

// LoadFile opens path and loads it with [Load].
func LoadFile(path string) ([]Recipe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recipe: open knowledge base %s: %w", path, err)
	}
	defer f.Close()

	recipes, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recipes, nil
}
