package storage

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Rodrigo270695/portalAD-sub001/internal/config"
)

// FactoryFunc builds a backend from the application configuration.
type FactoryFunc func(*config.Config) (Storage, error)

var registry = struct {
	sync.RWMutex
	factories map[string]FactoryFunc
}{factories: make(map[string]FactoryFunc)}

// Register makes a backend available under name. Like database/sql.Register it panics
// when name is taken or factory is nil; both are programming errors in an init().
func Register(name string, factory FactoryFunc) {
	registry.Lock()
	defer registry.Unlock()
	if factory == nil {
		panic("storage: Register factory is nil for " + name)
	}
	if _, dup := registry.factories[name]; dup {
		panic("storage: Register called twice for " + name)
	}
	registry.factories[name] = factory
}

// Backends lists the registered backend names in order.
func Backends() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewStorage creates the backend selected by storage.default_backend.
func NewStorage(cfg *config.Config) (Storage, error) {
	name := cfg.Storage.DefaultBackend

	registry.RLock()
	factory, ok := registry.factories[name]
	registry.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage backend: %s (registered: %v)", name, Backends())
	}

	s, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage backend %s: %w", name, err)
	}
	return s, nil
}
