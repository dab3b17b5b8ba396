package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events editors emit for one save.
const reloadDelay = 100 * time.Millisecond

// Watcher watches the config file and reloads it on change. A new config is
// only handed out after it parses and validates.
type Watcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	path    string
	watcher *fsnotify.Watcher
	current *Config
	pending *time.Timer

	onReload func(cfg *Config)
	onError  func(err error)

	done    chan struct{}
	running bool
}

// NewWatcher creates a watcher for path, starting from the given config.
func NewWatcher(path string, initial *Config, logger *slog.Logger) *Watcher {
	if path == "" {
		path = Path()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger:  logger,
		path:    path,
		current: initial,
		done:    make(chan struct{}),
	}
}

// OnReload sets the callback invoked with each successfully reloaded config.
func (w *Watcher) OnReload(fn func(cfg *Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
}

// OnError sets the callback invoked when a changed file fails to load.
func (w *Watcher) OnError(fn func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Current returns the last valid configuration.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Start begins watching. The directory is watched rather than the file so
// atomic saves (write temp, rename) are seen.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	w.watcher = fw
	w.done = make(chan struct{})
	w.running = true
	go w.watch(fw, w.done)

	w.logger.Debug("config watcher started", "path", w.path)
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
	close(w.done)

	w.logger.Debug("config watcher stopped")
	return w.watcher.Close()
}

func (w *Watcher) watch(fw *fsnotify.Watcher, done chan struct{}) {
	filename := filepath.Base(w.path)

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-done:
			return
		}
	}
}

// schedule arms (or re-arms) the debounced reload.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(reloadDelay, w.reload)
}

// reload loads and validates the file, then notifies callbacks.
func (w *Watcher) reload() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.pending = nil
	onReload, onError := w.onReload, w.onError
	w.mu.Unlock()

	w.logger.Debug("config file changed", "path", w.path)

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.logger.Info("config reloaded", "path", w.path)
	if onReload != nil {
		onReload(cfg)
	}
}
