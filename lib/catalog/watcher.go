package catalog

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of writes into one reload.
const DefaultDebounce = 500 * time.Millisecond

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatchLogger sets the logger.
func WithWatchLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.log = l }
}

// OnReload registers a callback run after every reload attempt with the
// load error, if any. A failed reload keeps the previous definitions.
func OnReload(fn func(error)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// Watcher reloads a Catalog whenever its file changes.
type Watcher struct {
	path     string
	cat      *Catalog
	debounce time.Duration
	log      *slog.Logger
	onReload func(error)

	fs       *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Watch starts watching path for changes and reloads cat from it. The
// containing directory is watched so editors that replace the file are seen.
func Watch(path string, cat *Catalog, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("catalog: create watcher: %w", err)
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		cat:      cat,
		debounce: DefaultDebounce,
		log:      slog.Default(),
		fs:       fsw,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("catalog: watch %s: %w", dir, err)
	}
	w.log.Info("watching lookup definitions", "path", w.path)

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Stop ends the watch. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fs.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Error("definitions watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	select {
	case <-w.done:
		return
	default:
	}
	f, err := LoadFile(w.path)
	if err != nil {
		w.log.Warn("keeping previous lookup definitions", "path", w.path, "error", err)
	} else {
		w.cat.Replace(f.Lookups)
		w.log.Info("reloaded lookup definitions", "path", w.path, "count", len(f.Lookups))
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}
