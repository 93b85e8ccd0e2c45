package mapping

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads a Store when one of its table files changes.
//
// Directories are watched rather than the files themselves so that editors
// and deploy tools that replace a file by rename are still seen.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration
	files    map[string]bool

	pendingMu sync.Mutex
	pending   bool

	reloads      atomic.Int64
	reloadErrors atomic.Int64
	done         chan struct{}
}

// NewWatcher creates a watcher for the store's table files.
func NewWatcher(store *Store, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	files := make(map[string]bool)
	for _, p := range store.Paths() {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		files[filepath.Clean(abs)] = true
	}

	return &Watcher{
		store:    store,
		watcher:  fsw,
		logger:   logger,
		debounce: debounce,
		files:    files,
		done:     make(chan struct{}),
	}, nil
}

// Start adds the watches and processes events until ctx is cancelled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}

	go w.processEvents(ctx)

	w.logger.Info("Mapping table watcher started",
		"files", len(w.files),
		"debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// Done is closed when event processing has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Reloads returns the number of successful reloads.
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

// ReloadErrors returns the number of failed reloads.
func (w *Watcher) ReloadErrors() int64 {
	return w.reloadErrors.Load()
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
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
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Mapping watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if !w.files[filepath.Clean(event.Name)] {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()

	w.logger.Debug("Mapping table change detected",
		"path", event.Name,
		"op", event.Op.String())
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if !w.pending {
		w.pendingMu.Unlock()
		return
	}
	w.pending = false
	w.pendingMu.Unlock()

	if err := w.store.Reload(); err != nil {
		w.reloadErrors.Add(1)
		w.logger.Warn("Mapping table reload failed; keeping previous tables", "error", err)
		return
	}
	w.reloads.Add(1)
}
