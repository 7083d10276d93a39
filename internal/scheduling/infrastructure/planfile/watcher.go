package planfile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 200 * time.Millisecond

// ChangeFunc receives each successfully reloaded plan.
type ChangeFunc func(ctx context.Context, plan *Plan) error

// Watcher reloads a plan file whenever it changes on disk.
type Watcher struct {
	path     string
	loader   *Loader
	onChange ChangeFunc
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the plan at path.
func NewWatcher(path string, loader *Loader, onChange ChangeFunc, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		loader:   loader,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   logger,
	}
}

// WithDebounce overrides the quiet period before a reload.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Run loads the plan once, then reloads it on every change until ctx is done.
// Load and callback errors are logged; the watcher keeps running.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.reload(ctx)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.logger.Debug("plan file changed", "file", event.Name, "op", event.Op.String())
				timer.Reset(w.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", "error", err)
		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	plan, err := w.loader.Load(w.path)
	if err != nil {
		w.logger.Warn("plan reload failed", "file", w.path, "error", err)
		return
	}
	if err := w.onChange(ctx, plan); err != nil {
		w.logger.Error("plan change handler failed", "file", w.path, "error", err)
	}
}
