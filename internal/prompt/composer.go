package prompt

import (
	"fmt"
	"strings"

	"github.com/54b3r/chefai-go/internal/rag"
)

// Composer merges a fixed instruction template, the retrieved context and
// the user question into a single prompt. It is pure: the same inputs
// always produce the same bytes.
type Composer struct {
	templates *Templates
	name      string
}

// NewComposer returns a Composer for the named template (Answer or Chat).
func NewComposer(t *Templates, name string) (*Composer, error) {
	if t == nil {
		return nil, fmt.Errorf("prompt: templates must not be nil")
	}
	if _, ok := t.Text(name); !ok {
		return nil, fmt.Errorf("prompt: unknown template %q", name)
	}
	if vars := placeholders[name]; len(vars) != 2 || vars[1] != "context" {
		return nil, fmt.Errorf("prompt: template %q is not a question/context template", name)
	}
	return &Composer{templates: t, name: name}, nil
}

// Compose builds the prompt for question from matches, in retrieval order.
// No matches yields an empty context block.
func (c *Composer) Compose(question string, matches []rag.Match) (string, error) {
	return c.ComposeContext(question, ContextBlock(matches))
}

// ComposeContext builds the prompt from an already rendered context block.
// Callers that substitute a placeholder context when retrieval fails use
// this directly.
func (c *Composer) ComposeContext(question, context string) (string, error) {
	return c.templates.Render(c.name, map[string]any{
		"question": question,
		"context":  context,
	})
}

// Template returns the name of the template this Composer renders.
func (c *Composer) Template() string { return c.name }

// ContextBlock renders matches as "\n- title: instructions" lines. Missing
// fields render as "No title" and "No instructions".
func ContextBlock(matches []rag.Match) string {
	var b strings.Builder
	for _, m := range matches {
		title := m.Recipe.Title
		if title == "" {
			title = "No title"
		}
		instructions := m.Recipe.Instructions
		if instructions == "" {
			instructions = "No instructions"
		}
		b.WriteString("\n- ")
		b.WriteString(title)
		b.WriteString(": ")
		b.WriteString(instructions)
	}
	return b.String()
}
