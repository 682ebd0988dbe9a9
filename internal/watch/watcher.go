// Package watch re-runs the suite when its inputs change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"imgconform/internal/domain"
	"imgconform/internal/logging"
)

// DefaultDebounce is how long the watcher waits after the last change
const DefaultDebounce = 500 * time.Millisecond

// RunFunc executes one whole suite
type RunFunc func(ctx context.Context) error

// Watcher runs a suite once, then again after every burst of changes in
// the watched directories. Runs never overlap.
type Watcher struct {
	dirs     []string
	run      RunFunc
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the quiet period before a re-run
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a Watcher for dirs
func New(dirs []string, run RunFunc, opts ...Option) *Watcher {
	w := &Watcher{
		dirs:     dirs,
		run:      run,
		debounce: DefaultDebounce,
		logger:   logging.L(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is cancelled. Errors from individual runs are
// logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	var watched int
	for _, dir := range w.dirs {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err != nil {
			w.logger.Warn("not watching missing directory", "dir", dir)
			continue
		}
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %q: %w", dir, err)
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no directory to watch")
	}

	w.runOnce(ctx)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.runOnce(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "err", err)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	if err := w.run(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("run failed", "err", err)
	}
}

// relevant ignores attribute changes and the harness's own diagnostic output
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if filepath.Ext(base) == domain.DiagnosticExt {
		return false
	}
	return len(base) > 0 && base[0] != '.'
}
