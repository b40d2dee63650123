package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// configWatcher calls reload when any of the watched files is written,
// created, renamed or removed. Bursts of events within the debounce delay
// trigger a single reload.
type configWatcher struct {
	delay  time.Duration
	reload func(ctx context.Context)
	logger *slog.Logger

	mu      sync.Mutex
	files   map[string]bool
	changed chan struct{}
}

func newConfigWatcher(files []string, reload func(ctx context.Context), logger *slog.Logger) *configWatcher {
	w := &configWatcher{
		delay:   reloadDebounce,
		reload:  reload,
		logger:  logger,
		changed: make(chan struct{}, 1),
	}
	w.Watch(files)
	return w
}

// Watch replaces the set of watched files. It may be called while Run is
// active, for example after a reload moved the dictionary.
func (w *configWatcher) Watch(files []string) {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[filepath.Clean(f)] = true
	}
	w.mu.Lock()
	w.files = set
	w.mu.Unlock()

	select {
	case w.changed <- struct{}{}:
	default:
	}
}

func (w *configWatcher) tracked(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[filepath.Clean(name)]
}

// addDirs watches the directory of every tracked file not yet in dirs.
func (w *configWatcher) addDirs(watcher *fsnotify.Watcher, dirs map[string]bool) {
	w.mu.Lock()
	var pending []string
	for f := range w.files {
		if dir := filepath.Dir(f); !dirs[dir] {
			dirs[dir] = true
			pending = append(pending, dir)
		}
	}
	w.mu.Unlock()

	for _, dir := range pending {
		if err := watcher.Add(dir); err != nil {
			w.logger.Warn("not watching config directory", "dir", dir, "error", err)
			continue
		}
		w.logger.Debug("watching config directory", "dir", dir)
	}
}

// Run watches until ctx is done. Directories that do not exist are
// skipped; if none can be watched Run waits for ctx without watching.
// Directories of files added later through Watch are picked up as well.
func (w *configWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dirs := make(map[string]bool)
	w.addDirs(watcher, dirs)

	timer := time.NewTimer(w.delay)
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
			if !w.tracked(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.logger.Debug("config changed", "file", event.Name, "op", event.Op)
			timer.Reset(w.delay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-w.changed:
			w.addDirs(watcher, dirs)

		case <-timer.C:
			w.reload(ctx)
		}
	}
}
