package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce absorbs the burst of events editors emit for a single save.
const debounce = 500 * time.Millisecond

// Watch calls fn whenever the file at path is written, created or renamed
// into place, until ctx is cancelled. The parent directory is watched so
// atomic-rename saves are seen. Errors from fn are logged and watching
// continues.
func Watch(ctx context.Context, path string, fn func(context.Context) error, log *slog.Logger) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("ingestion: resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ingestion: create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("ingestion: watch %s: %w", filepath.Dir(abs), err)
	}
	log.Info("ingestion: watching knowledge base", slog.String("path", abs))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("ingestion: watcher error", slog.String("error", err.Error()))
		case <-timer.C:
			log.Info("ingestion: knowledge base changed, re-ingesting", slog.String("path", abs))
			if err := fn(ctx); err != nil {
				log.Error("ingestion: re-ingest failed", slog.String("error", err.Error()))
			}
		}
	}
}
