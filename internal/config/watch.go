package config

import (
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watcher keeps a loaded configuration in sync with its YAML file.
// Only settings that are safe to change at runtime are pushed to subscribers;
// everything else still needs a restart.
type Watcher struct {
	v *viper.Viper

	mu      sync.RWMutex
	current *Config
	subs    []func(old, updated *Config)
}

// LoadWatched loads configuration like Load and returns a Watcher over it.
// Call Start to begin watching the config file for changes.
func LoadWatched(configPath string) (*Watcher, error) {
	cfg, v, err := load(configPath)
	if err != nil {
		return nil, err
	}
	return &Watcher{v: v, current: cfg}, nil
}

// Config returns the most recently accepted configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers fn to be called after each accepted reload.
func (w *Watcher) OnChange(fn func(old, updated *Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = append(w.subs, fn)
}

// Start begins watching the config file. It is a no-op when no file was found.
func (w *Watcher) Start() {
	if w.v.ConfigFileUsed() == "" {
		slog.Debug("config watch disabled: no config file in use")
		return
	}
	w.v.OnConfigChange(w.handle)
	w.v.WatchConfig()
	slog.Info("watching config file for changes", "path", w.v.ConfigFileUsed())
}

func (w *Watcher) handle(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	w.reload(e.Name)
}

// reload decodes the current viper state; an invalid file keeps the previous config.
func (w *Watcher) reload(source string) {
	updated, err := decode(w.v)
	if err != nil {
		slog.Warn("config reload rejected", "path", source, "error", err)
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = updated
	subs := append([]func(old, updated *Config){}, w.subs...)
	w.mu.Unlock()

	slog.Info("config reloaded", "path", source)
	for _, fn := range subs {
		fn(old, updated)
	}
}
