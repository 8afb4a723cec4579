// Package watch reports settled changes to Rust files below a set of roots.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ferrolint/internal/crawler"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must stay quiet before it is reported.
const DefaultDebounce = 300 * time.Millisecond

// Watcher tracks Rust file writes and batches them after a quiet period.
type Watcher struct {
	watcher  *fsnotify.Watcher
	crawler  *crawler.Crawler
	logger   *zap.Logger
	debounce time.Duration
	pending  map[string]time.Time

	// files holds roots given as single files. Their parent directories
	// are in fileDirs unless a directory root also covers them, and only
	// events on those files are reported from such directories.
	files    map[string]bool
	fileDirs map[string]bool
}

// New watches every non-ignored directory under roots.
func New(roots []string, cr *crawler.Crawler, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		crawler:  cr,
		logger:   logger,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		files:    make(map[string]bool),
		fileDirs: make(map[string]bool),
	}
	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return w.addFile(root)
	}
	dirs, err := w.crawler.Dirs(root)
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", root, err)
	}
	for _, dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		delete(w.fileDirs, filepath.Clean(dir))
	}
	return nil
}

func (w *Watcher) addFile(path string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	w.files[path] = true
	if w.watched(dir) {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.fileDirs[dir] = true
	return nil
}

func (w *Watcher) watched(dir string) bool {
	for _, d := range w.watcher.WatchList() {
		if filepath.Clean(d) == dir {
			return true
		}
	}
	return false
}

// outside reports events in a directory watched only for single file
// roots that concern another entry of that directory.
func (w *Watcher) outside(name string) bool {
	name = filepath.Clean(name)
	return w.fileDirs[filepath.Dir(name)] && !w.files[name]
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run delivers batches of changed files, sorted, to onChange until ctx is
// done. Removed files are not reported.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) error {
	ticker := time.NewTicker(max(w.debounce/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-ticker.C:
			if ready := w.settled(time.Now()); len(ready) > 0 {
				onChange(ctx, ready)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.outside(event.Name) {
		return
	}
	switch {
	case event.Op&fsnotify.Create != 0:
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	case event.Op&fsnotify.Write != 0:
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		delete(w.pending, event.Name)
		return
	default:
		return
	}
	if crawler.IsRust(event.Name) {
		w.pending[event.Name] = time.Now()
	}
}

// settled removes and returns the pending files quiet for the debounce period.
func (w *Watcher) settled(now time.Time) []string {
	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}
