package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads the catalog file when it changes on disk.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func([]Cam)
	logger   *slog.Logger
}

func NewWatcher(path string, onChange func([]Cam), logger *slog.Logger) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: defaultDebounce,
		onChange: onChange,
		logger:   logger,
	}
}

func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run blocks until ctx is done. The directory is watched rather than the file so
// editors that replace the file by rename are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch catalog dir: %w", err)
	}

	w.logger.Info("watching catalog", "path", w.path)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.logger.Debug("catalog changed", "op", event.Op.String())
				debounce = time.After(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("catalog watcher error", "error", err)
		case <-debounce:
			debounce = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cams, err := Load(w.path)
	if err != nil {
		w.logger.Error("failed to reload catalog, keeping previous", "error", err)
		return
	}

	valid, rejected := Valid(cams)
	for _, r := range rejected {
		w.logger.Warn("dropping invalid cam", "index", r.Index, "id", r.ID, "errors", r.Errors)
	}

	if len(valid) == 0 {
		w.logger.Error("reloaded catalog has no valid cams, keeping previous")
		return
	}

	w.logger.Info("catalog reloaded", "cams", len(cams), "valid", len(valid))
	w.onChange(cams)
}
