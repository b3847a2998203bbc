// Package watcher registers newly arrived library files for indexing
// using filesystem notifications.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/passage-cli/internal/core/ports/driven"
	"github.com/custodia-labs/passage-cli/internal/logger"
)

// Watcher observes a library directory tree and records supported new
// files as pending. It never changes the state of files the store
// already knows about; re-indexing is an explicit operation.
type Watcher struct {
	fsw      *fsnotify.Watcher
	statuses driven.IndexStatusStore
	registry driven.ExtractorRegistry
	onChange func()

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

// New creates a watcher. onChange, if non-nil, is called after new
// files are registered, typically to trigger an indexing batch.
func New(statuses driven.IndexStatusStore, registry driven.ExtractorRegistry, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}

	return &Watcher{
		fsw:      fsw,
		statuses: statuses,
		registry: registry,
		onChange: onChange,
	}, nil
}

// Start begins watching the library root and all its subdirectories.
func (w *Watcher) Start(ctx context.Context, root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil
	}

	if err := w.addTree(root); err != nil {
		return err
	}

	w.started = true
	w.wg.Add(1)
	go w.loop(ctx)

	return nil
}

// Close stops the event loop and releases the watcher.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// addTree watches a directory and every directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
		}
		return nil
	})
}

// loop dispatches filesystem events until the watcher closes or the
// context is cancelled.
func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error: %v", err)
		}
	}
}

// handle registers created or written files, and extends the watch into
// newly created directories.
func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return // removed again before we got to it
	}

	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if err := w.addTree(event.Name); err != nil {
				logger.Warn("watching new directory %s: %v", event.Name, err)
			}
		}
		return
	}

	// Unsupported extensions are not an error, just not ours.
	if _, err := w.registry.ForPath(event.Name); err != nil {
		return
	}

	path, err := filepath.Abs(event.Name)
	if err != nil {
		logger.Warn("resolving %s: %v", event.Name, err)
		return
	}

	if err := w.statuses.Upsert(ctx, path); err != nil {
		logger.Warn("registering %s: %v", path, err)
		return
	}

	logger.Debug("discovered %s", path)
	if w.onChange != nil {
		w.onChange()
	}
}
