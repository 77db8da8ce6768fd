package evaluation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultResultsFile is the result file name used when none is configured.
const DefaultResultsFile = "judge_results.json"

// WriteResults writes records to path as an indented UTF-8 JSON array. The
// file is written to a temporary sibling and renamed into place, so a
// crash never leaves a half-written result file behind.
func WriteResults(path string, records []Record) error {
	if records == nil {
		records = []Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("evaluation: encode results: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".judge_results-*.json")
	if err != nil {
		return fmt.Errorf("evaluation: create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("evaluation: write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("evaluation: close results: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // results are meant to be shared
		return fmt.Errorf("evaluation: chmod results: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("evaluation: move results into place: %w", err)
	}
	return nil
}
