package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/shrub9/internal/config"
	"github.com/jmylchreest/shrub9/internal/theme"
)

// defaultDebounce collapses the burst of writes an editor makes on save.
const defaultDebounce = 150 * time.Millisecond

// ConfigWatcher watches the config file and the user palette directory and
// reloads the config when either changes.
// Files that fail to load or validate are reported and otherwise ignored.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	configPath string
	themesDir  string
	debounce   time.Duration

	onReloadCallback func(newConfig *config.Config)
	onErrorCallback  func(err error)
}

// NewConfigWatcher creates a watcher for the config file at path.
func NewConfigWatcher(path string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigWatcher{
		logger:     logger,
		configPath: path,
		themesDir:  theme.ThemesDir(),
		debounce:   defaultDebounce,
	}
}

// SetDebounce sets how long the watcher waits for writes to settle.
func (w *ConfigWatcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// SetThemesDir overrides the palette directory watched alongside the file.
func (w *ConfigWatcher) SetThemesDir(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.themesDir = dir
}

// SetReloadCallback sets the callback to invoke when config is successfully reloaded.
func (w *ConfigWatcher) SetReloadCallback(callback func(newConfig *config.Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback to invoke when config reload fails validation.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// Run watches until ctx is done. The directory is watched rather than the
// file so that editors replacing the file are noticed.
func (w *ConfigWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.configPath)
	if err := watcher.Add(dir); err != nil {
		w.logger.Warn("config hot reload disabled", "dir", dir, "error", err)
		<-ctx.Done()
		return nil
	}
	w.logger.Debug("config watcher started", "path", w.configPath)

	w.mu.RLock()
	debounce := w.debounce
	themesDir := w.themesDir
	w.mu.RUnlock()

	// The palette directory is optional.
	if themesDir != "" {
		if err := watcher.Add(themesDir); err != nil {
			w.logger.Debug("theme directory not watched", "dir", themesDir, "error", err)
			themesDir = ""
		}
	}

	filename := filepath.Base(w.configPath)
	relevant := func(name string) bool {
		if filepath.Dir(name) == dir && filepath.Base(name) == filename {
			return true
		}
		return themesDir != "" && filepath.Dir(name) == themesDir && filepath.Ext(name) == ".toml"
	}
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("config watcher stopped")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(ev.Name) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

// reload loads and validates the file and hands the result to a callback.
func (w *ConfigWatcher) reload() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	w.mu.RUnlock()

	cfg, err := config.LoadConfig(w.configPath)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config", "path", w.configPath, "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.logger.Info("config file changed", "path", w.configPath)
	if reloadCallback != nil {
		reloadCallback(cfg)
	}
}
