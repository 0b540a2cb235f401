// Package watch monitors unit source trees and triggers a redeploy
// callback when files change. Changes are debounced so a burst of
// editor saves results in a single redeploy per unit.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce duration for file change events.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger for the watcher.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// Watcher maps filesystem events in unit source directories to unit
// names and invokes onChange once per changed unit per debounce window.
type Watcher struct {
	dirs     map[string]string // absolute dir -> unit name
	debounce time.Duration
	logger   *slog.Logger
	onChange func(unit string)

	fsWatcher *fsnotify.Watcher
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex
	pending map[string]time.Time // unit -> last event time
}

// New creates a Watcher over the given unit source directories.
// dirs maps each unit name to its source directory. onChange is called
// with the unit name whenever files under its tree change.
func New(dirs map[string]string, onChange func(unit string), opts ...Option) (*Watcher, error) {
	w := &Watcher{
		dirs:     make(map[string]string, len(dirs)),
		debounce: 500 * time.Millisecond,
		logger:   slog.Default(),
		onChange: onChange,
		done:     make(chan struct{}),
		pending:  make(map[string]time.Time),
	}
	for unit, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %s: %w", dir, err)
		}
		w.dirs[abs] = unit
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching every unit source tree, including nested
// directories (fsnotify watches are not recursive).
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create fsnotify: %w", err)
	}
	w.fsWatcher = fsw

	for dir := range w.dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fsw.Add(path)
			}
			return nil
		})
		if err != nil {
			_ = fsw.Close()
			return fmt.Errorf("watch: watch %s: %w", dir, err)
		}
	}

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop terminates the watcher and waits for the background goroutine.
// Safe to call more than once.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				if unit, ok := w.unitFor(event.Name); ok {
					w.mu.Lock()
					w.pending[unit] = time.Now()
					w.mu.Unlock()
				}
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "err", err)

		case <-ticker.C:
			w.processPending()
		}
	}
}

// unitFor maps an event path to the owning unit by longest-prefix
// match against the watched source directories.
func (w *Watcher) unitFor(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	for dir, unit := range w.dirs {
		if abs == dir || isUnder(abs, dir) {
			return unit, true
		}
	}
	return "", false
}

func isUnder(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// processPending fires the callback for every unit whose last event is
// at least one debounce window old.
func (w *Watcher) processPending() {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for unit, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			ready = append(ready, unit)
		}
	}
	for _, unit := range ready {
		delete(w.pending, unit)
	}
	w.mu.Unlock()

	for _, unit := range ready {
		w.logger.Info("source changed", "unit", unit)
		w.onChange(unit)
	}
}
