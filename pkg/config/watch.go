package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a configuration file for changes after startup. The
// tracing pipeline is assembled exactly once and is never rebuilt, so the
// watcher does not apply changes; it validates the new file and reports drift
// so operators know a restart is required to pick it up.
type Watcher struct {
	path    string
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	// Drift receives one message per observed change. Buffered so slow
	// consumers do not block the event loop.
	drift chan DriftEvent

	stopOnce sync.Once
	done     chan struct{}
}

// DriftEvent describes a configuration file change observed after startup.
type DriftEvent struct {
	// Path is the watched configuration file.
	Path string

	// Err is non-nil when the changed file failed to load or validate.
	Err error
}

// NewWatcher starts watching the given configuration file. The parent
// directory is watched rather than the file itself so atomic rename-based
// rewrites (the common editor and configmap update pattern) are observed.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		path:    path,
		logger:  logger,
		watcher: fw,
		drift:   make(chan DriftEvent, 16),
		done:    make(chan struct{}),
	}

	go w.run()
	return w, nil
}

// Drift returns the channel of observed configuration changes.
func (w *Watcher) Drift() <-chan DriftEvent {
	return w.drift
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.report()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("configuration watcher error", "error", err)
		}
	}
}

// report validates the changed file and emits a drift event. The running
// pipeline is intentionally left untouched.
func (w *Watcher) report() {
	_, err := LoadConfigWithEnvOverrides(w.path)
	if err != nil {
		w.logger.Error("configuration file changed on disk but is invalid",
			"path", w.path, "error", err)
	} else {
		w.logger.Warn("configuration file changed on disk; restart required for tracing changes to take effect",
			"path", w.path)
	}

	select {
	case w.drift <- DriftEvent{Path: w.path, Err: err}:
	default:
		// Consumer is behind; the log line above already recorded the drift.
	}
}
