package backend

import (
	"fmt"
	"sync"

	"github.com/brettbedarf/blockfs"
	"github.com/brettbedarf/blockfs/config"
)

var (
	mu        sync.RWMutex
	factories = map[string]func(cfg *config.Config) (blockfs.ObjectBackend, error){}
)

// Register ties a backend factory to a scheme key and should be called for
// each backend type during app init
func Register(scheme string, factory func(cfg *config.Config) (blockfs.ObjectBackend, error)) {
	mu.Lock()
	factories[scheme] = factory
	mu.Unlock()
}

// Open picks the right factory based on cfg.BackendScheme.
// All expected backend schemes should be registered with [Register] before
// calling this function.
func Open(cfg *config.Config) (blockfs.ObjectBackend, error) {
	mu.RLock()
	f, ok := factories[cfg.BackendScheme]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no backend for scheme %q", cfg.BackendScheme)
	}
	return f(cfg)
}

type BuiltInBackendScheme = string

const (
	MemoryScheme BuiltInBackendScheme = "memory"
	DiskScheme   BuiltInBackendScheme = "disk"
)

// RegisterBuiltins registers all built-in backends by default
// or only the specific ones if schemes are provided
func RegisterBuiltins(schemes ...BuiltInBackendScheme) {
	if len(schemes) == 0 {
		schemes = append(schemes, MemoryScheme, DiskScheme)
	}

	for _, scheme := range schemes {
		switch scheme {
		case MemoryScheme:
			Register(MemoryScheme, func(*config.Config) (blockfs.ObjectBackend, error) {
				return NewMemory(), nil
			})
		case DiskScheme:
			Register(DiskScheme, func(cfg *config.Config) (blockfs.ObjectBackend, error) {
				return NewDisk(cfg.BackendRoot)
			})
		}
	}
}
