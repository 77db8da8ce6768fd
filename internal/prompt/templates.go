// Package prompt holds chefai's prompt templates and the Prompt Composer.
//
// Templates are versioned assets: the defaults are embedded in the binary
// and any of them can be replaced at startup from a directory (see [Load]),
// so policy wording changes without a rebuild. Templates use single-brace
// placeholders such as {question}; literal braces are written doubled.
package prompt

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.tmpl
var embedded embed.FS

// Template names.
const (
	// Answer grounds CLI and batch answers in the retrieved recipes.
	Answer = "answer"
	// Chat is the warmer variant used by the web UI.
	Chat = "chat"
	// Judge is the scoring rubric sent to the evaluator model.
	Judge = "judge"
)

// placeholders lists the variables each template must reference.
var placeholders = map[string][]string{
	Answer: {"question", "context"},
	Chat:   {"question", "context"},
	Judge:  {"question", "answer", "reference"},
}

// Templates is an immutable, validated set of prompt templates.
type Templates struct {
	texts   map[string]string
	sources map[string]string
	version string
}

// Default returns the embedded template set.
func Default() *Templates {
	t, err := Load("")
	if err != nil {
		// The embedded assets are validated by tests; failure here is a build defect.
		panic(err)
	}
	return t
}

// Load returns the embedded templates with any <name>.tmpl file found in dir
// taking precedence. An empty dir loads the embedded set only. Every
// template is checked for parse errors and for the placeholders it must
// reference before Load returns.
func Load(dir string) (*Templates, error) {
	t := &Templates{
		texts:   make(map[string]string, len(placeholders)),
		sources: make(map[string]string, len(placeholders)),
	}

	for name := range placeholders {
		data, err := fs.ReadFile(embedded, "templates/"+name+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("prompt: read embedded template %q: %w", name, err)
		}
		t.texts[name] = string(data)
		t.sources[name] = "embedded"

		if dir == "" {
			continue
		}
		path := filepath.Join(dir, name+".tmpl")
		data, err = os.ReadFile(path)
		switch {
		case err == nil:
			t.texts[name] = string(data)
			t.sources[name] = path
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("prompt: read template %s: %w", path, err)
		}
	}

	for name, vars := range placeholders {
		if err := check(t.texts[name], vars); err != nil {
			return nil, fmt.Errorf("prompt: template %q from %s: %w", name, t.sources[name], err)
		}
	}

	t.version = hashTexts(t.texts)
	return t, nil
}

// Version is a short content hash of the whole set. It changes whenever
// any template's text changes, so logs and result files can be tied back
// to the exact wording used.
func (t *Templates) Version() string { return t.version }

// Source reports where the named template was loaded from: "embedded" or a file path.
func (t *Templates) Source(name string) string { return t.sources[name] }

// Text returns the raw text of the named template.
func (t *Templates) Text(name string) (string, bool) {
	s, ok := t.texts[name]
	return s, ok
}

// Render substitutes vars into the named template.
func (t *Templates) Render(name string, vars map[string]any) (string, error) {
	text, ok := t.texts[name]
	if !ok {
		return "", fmt.Errorf("prompt: unknown template %q", name)
	}
	return render(text, vars)
}

func render(text string, vars map[string]any) (string, error) {
	msgs, err := schema.UserMessage(text).Format(context.Background(), vars, schema.FString)
	if err != nil {
		return "", fmt.Errorf("prompt: render: %w", err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("prompt: render produced no message")
	}
	return msgs[0].Content, nil
}

// check renders text with a unique marker per variable and verifies that
// every marker comes through.
func check(text string, vars []string) error {
	values := make(map[string]any, len(vars))
	for _, v := range vars {
		values[v] = marker(v)
	}
	out, err := render(text, values)
	if err != nil {
		return err
	}
	for _, v := range vars {
		if !strings.Contains(out, marker(v)) {
			return fmt.Errorf("missing placeholder {%s}", v)
		}
	}
	return nil
}

func marker(v string) string { return "\x00" + v + "\x00" }

func hashTexts(texts map[string]string) string {
	names := make([]string, 0, len(texts))
	for n := range texts {
		names = append(names, n)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, n := range names {
		h.Write([]byte(n))
		h.Write([]byte{0})
		h.Write([]byte(texts[n]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
