package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
	"github.com/meridian-labs/cogsync-cli/internal/logger"
)

// defaultDebounce batches the burst of events a bulk copy produces into a
// single trigger.
const defaultDebounce = 2 * time.Second

// Watcher triggers a callback when raster files under a directory tree
// change. Events are debounced so one trigger covers a whole batch of
// writes.
type Watcher struct {
	registry driven.ConverterRegistry
	debounce time.Duration
}

// NewWatcher creates a watcher over the given registry.
func NewWatcher(registry driven.ConverterRegistry) *Watcher {
	return &Watcher{
		registry: registry,
		debounce: defaultDebounce,
	}
}

// Watch blocks, invoking onChange after raster activity under root settles.
// New subdirectories are watched as they appear. Returns when ctx is done.
func (w *Watcher) Watch(ctx context.Context, root string, onChange func(context.Context)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := addRecursive(fsw, root); err != nil {
		return err
	}
	logger.Info("Watching %s for changes", root)

	// The timer is armed by relevant events and drained on trigger.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				// A new directory must be watched before files land in it.
				if err := addRecursive(fsw, event.Name); err != nil {
					logger.Debug("Not watching %s: %v", event.Name, err)
				}
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debug("Change detected: %s %s", event.Op, event.Name)
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)

		case <-timer.C:
			onChange(ctx)
		}
	}
}

// relevant reports whether an event concerns a convertible file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	if ext == "" {
		return false
	}
	_, err := w.registry.ForExtension(ext)
	return err == nil
}

// addRecursive watches path and every directory beneath it. Non-directory
// paths are ignored.
func addRecursive(fsw *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") && p != path {
			return fs.SkipDir
		}
		return fsw.Add(p)
	})
}
