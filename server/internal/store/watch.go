package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates the cache whenever the snapshot file is written,
// created, renamed or removed. It watches the containing directory so that
// atomic replacements (write to a temp file, then rename) are seen. Watch
// never reloads; the next read does. A missing directory is created, since
// the fetcher may not have run yet. It runs until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create data dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("store: watch %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)

	slog.Info("store: watching data file", "path", s.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			slog.Info("store: data file changed", "path", s.path, "op", event.Op.String())
			s.Invalidate()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("store: watcher error", "err", err)
		}
	}
}
