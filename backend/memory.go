// Package backend provides [blockfs.ObjectBackend] implementations and a
// scheme-keyed provider registry.
package backend

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/brettbedarf/blockfs"
	"github.com/puzpuzpuz/xsync/v4"
)

// memObject is one stored blob. The mutex serializes byte-range access to
// a single object; the object table itself is lock-free.
type memObject struct {
	mu   sync.RWMutex
	data []byte
}

// Memory is an in-process ObjectBackend keeping every object in a
// concurrent map. It is the default backend and the test double for the
// stores and the namespace engine.
type Memory struct {
	objects *xsync.Map[string, *memObject]
}

var _ blockfs.ObjectBackend = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{objects: xsync.NewMap[string, *memObject]()}
}

func (m *Memory) Put(ctx context.Context, key string, p []byte, offset int64) error {
	obj, _ := m.objects.LoadOrStore(key, &memObject{})
	obj.mu.Lock()
	defer obj.mu.Unlock()

	end := offset + int64(len(p))
	if int64(len(obj.data)) < end {
		grown := make([]byte, end)
		copy(grown, obj.data)
		obj.data = grown
	}
	copy(obj.data[offset:end], p)
	return nil
}

func (m *Memory) Get(ctx context.Context, key string, p []byte, offset int64) (int, error) {
	obj, ok := m.objects.Load(key)
	if !ok {
		return 0, fmt.Errorf("get %q: %w", key, blockfs.ErrNoSuchKey)
	}
	obj.mu.RLock()
	defer obj.mu.RUnlock()

	if offset >= int64(len(obj.data)) {
		return 0, io.EOF
	}
	return copy(p, obj.data[offset:]), nil
}

func (m *Memory) Stat(ctx context.Context, key string) (blockfs.ObjectInfo, error) {
	obj, ok := m.objects.Load(key)
	if !ok {
		return blockfs.ObjectInfo{}, fmt.Errorf("stat %q: %w", key, blockfs.ErrNoSuchKey)
	}
	obj.mu.RLock()
	defer obj.mu.RUnlock()
	return blockfs.ObjectInfo{Size: int64(len(obj.data))}, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if _, ok := m.objects.LoadAndDelete(key); !ok {
		return fmt.Errorf("delete %q: %w", key, blockfs.ErrNoSuchKey)
	}
	return nil
}

func (m *Memory) ListKeys(ctx context.Context, prefix string, recursive bool) ([]string, error) {
	var keys []string
	m.objects.Range(func(key string, _ *memObject) bool {
		if !strings.HasPrefix(key, prefix) {
			return true
		}
		if !recursive && strings.Contains(key[len(prefix):], "/") {
			return true
		}
		keys = append(keys, key)
		return true
	})
	return keys, nil
}
