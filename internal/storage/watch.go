package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchFiles calls fn with the path of each given file that is written,
// created, renamed or removed, until ctx is done.
//
// The parent directories are watched so that files created after the call,
// or replaced by editors, are still seen. fn runs on the watcher goroutine.
// WatchFiles returns once the watcher is set up.
func WatchFiles(ctx context.Context, paths []string, fn func(path string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	want := make(map[string]bool, len(paths))
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = w.Close()
			return err
		}
		want[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !want[filepath.Clean(event.Name)] || event.Op == fsnotify.Chmod {
					continue
				}
				fn(event.Name)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching data files", "err", err)
			}
		}
	}()
	return nil
}
