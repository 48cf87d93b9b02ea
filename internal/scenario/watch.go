package scenario

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"clitest/pkg/logging"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher re-runs a callback whenever scenario files change.
type Watcher struct {
	root     string
	debounce time.Duration
}

// NewWatcher watches root, a scenario file or a directory tree. A zero debounce uses 500ms.
func NewWatcher(root string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{root: root, debounce: debounce}
}

// Run calls onChange once right away and again after every burst of YAML changes, until ctx
// is done. Calls never overlap; changes made during a call trigger one more call afterwards.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context)) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", w.root, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	var match func(name string) bool
	if info.IsDir() {
		if err := addTree(watcher, w.root); err != nil {
			return err
		}
		match = isYAMLFile
	} else {
		// Editors replace files on save, so the parent directory is watched instead.
		if err := watcher.Add(filepath.Dir(w.root)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.root), err)
		}
		target := filepath.Clean(w.root)
		match = func(name string) bool { return filepath.Clean(name) == target }
	}
	logging.Info("Watcher", "Watching %s for scenario changes", w.root)

	onChange(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create && info.IsDir() {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						logging.Warn("Watcher", "Failed to watch new directory %s: %v", event.Name, err)
					}
					// Files may have landed before the watch was added.
					timer.Reset(w.debounce)
					continue
				}
			}
			if !match(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			logging.Debug("Watcher", "Change detected: %s %s", event.Op, event.Name)
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("Watcher", err, "File watcher error")

		case <-timer.C:
			onChange(ctx)
		}
	}
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		logging.Debug("Watcher", "Watching directory: %s", path)
		return nil
	})
}
