package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"

	"github.com/kahiteam/redisvc/internal/logging"
	"github.com/kahiteam/redisvc/internal/metrics"
)

// watchDebounce collapses the burst of events an editor produces on save.
const watchDebounce = 200 * time.Millisecond

// ConfigWatcher notices edits to the redis config file while the service
// runs. Changes are not applied; the operator is told to restart.
type ConfigWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	metrics *metrics.Collector
	// Changed, if set, is called once per debounced change.
	Changed func()
}

// NewConfigWatcher watches the directory holding path, so that editors
// replacing the file by rename are still seen.
func NewConfigWatcher(path string, logger *slog.Logger, m *metrics.Collector) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("cannot watch %s: %w", path, err)
	}
	return &ConfigWatcher{path: abs, watcher: w, logger: logger, metrics: m}, nil
}

// Run delivers change notices until the stopper begins stopping.
func (w *ConfigWatcher) Run(sctx *stopper.Context) error {
	defer w.watcher.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-sctx.Stopping():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending = time.After(watchDebounce)
			}

		case <-pending:
			pending = nil
			w.metrics.IncConfigChange()
			w.logger.Log(context.Background(), logging.LevelNotice,
				"configuration file changed; restart the service to apply", "path", w.path)
			if w.Changed != nil {
				w.Changed()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("configuration watcher error", "error", err)
		}
	}
}
