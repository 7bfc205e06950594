package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gxpmd/gxptrace/internal/config"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long the watcher waits for more changes before emitting
const DefaultDebounce = 500 * time.Millisecond

// Watcher emits batches of changed files that the walker would scan
type Watcher struct {
	walker   *Walker
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *logrus.Logger

	pendingMu sync.Mutex
	pending   map[string]struct{}

	changes chan []string
}

// NewWatcher creates a watcher over the walker's root. debounce <= 0 uses DefaultDebounce.
func NewWatcher(walker *Walker, debounce time.Duration, logger *logrus.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		walker:   walker,
		watcher:  fsw,
		debounce: debounce,
		logger:   logger,
		pending:  make(map[string]struct{}),
		changes:  make(chan []string, 16),
	}, nil
}

// Changes returns batches of changed relative paths, sorted. The channel is
// closed when the watcher stops.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Start adds watches for every scanned directory and begins processing events
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.walker.Root()); err != nil {
		return err
	}
	go w.processEvents(ctx)

	w.logger.WithFields(logrus.Fields{
		"root":     w.walker.Root(),
		"debounce": w.debounce.String(),
	}).Info("Watching for annotation changes")
	return nil
}

// Stop closes the underlying fsnotify watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(root, path); relErr == nil && rel != "." && w.walker.SkipDir(rel) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.WithError(err).WithField("path", path).Warn("Failed to watch directory")
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.changes)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Watcher error")

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.walker.Root(), event.Name)
	if err != nil {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.walker.SkipDir(rel) {
				if err := w.addWatchesRecursive(event.Name); err != nil {
					w.logger.WithError(err).WithField("path", rel).Warn("Failed to watch new directory")
				}
			}
			return
		}
	}

	// the policy document changes how every file is judged
	if rel != config.DocumentName && !w.walker.Match(rel) {
		return
	}

	w.pendingMu.Lock()
	w.pending[filepath.ToSlash(rel)] = struct{}{}
	w.pendingMu.Unlock()

	w.logger.WithFields(logrus.Fields{
		"file": rel,
		"op":   event.Op.String(),
	}).Debug("Change detected")
}

// flush emits pending changes as one batch
func (w *Watcher) flush(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	sort.Strings(batch)
	select {
	case w.changes <- batch:
	case <-ctx.Done():
	}
}
