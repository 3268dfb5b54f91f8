package backend

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/blockfs"
)

// Disk is an ObjectBackend keeping one regular file per object under a
// single root directory. Object keys are path-escaped into flat file
// names, so the key space stays flat on disk and listings never descend.
type Disk struct {
	root string
}

var _ blockfs.ObjectBackend = (*Disk)(nil)

// NewDisk creates the root directory if needed and returns the backend.
func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create backend root: %w", err)
	}
	return &Disk{root: root}, nil
}

func (d *Disk) objectPath(key string) string {
	return filepath.Join(d.root, url.PathEscape(key))
}

func (d *Disk) Put(ctx context.Context, key string, p []byte, offset int64) error {
	f, err := os.OpenFile(d.objectPath(key), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	defer f.Close()

	if _, err := f.WriteAt(p, offset); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

func (d *Disk) Get(ctx context.Context, key string, p []byte, offset int64) (int, error) {
	f, err := os.Open(d.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("get %q: %w", key, blockfs.ErrNoSuchKey)
		}
		return 0, fmt.Errorf("get %q: %w", key, err)
	}
	defer f.Close()

	n, err := f.ReadAt(p, offset)
	if err == io.EOF {
		if n == 0 {
			return 0, io.EOF
		}
		// short read at end-of-object
		return n, nil
	}
	if err != nil {
		return n, fmt.Errorf("get %q: %w", key, err)
	}
	return n, nil
}

func (d *Disk) Stat(ctx context.Context, key string) (blockfs.ObjectInfo, error) {
	info, err := os.Stat(d.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return blockfs.ObjectInfo{}, fmt.Errorf("stat %q: %w", key, blockfs.ErrNoSuchKey)
		}
		return blockfs.ObjectInfo{}, fmt.Errorf("stat %q: %w", key, err)
	}
	return blockfs.ObjectInfo{Size: info.Size()}, nil
}

func (d *Disk) Delete(ctx context.Context, key string) error {
	if err := os.Remove(d.objectPath(key)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete %q: %w", key, blockfs.ErrNoSuchKey)
		}
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (d *Disk) ListKeys(ctx context.Context, prefix string, recursive bool) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}

	var keys []string
	for _, entry := range entries {
		key, err := url.PathUnescape(entry.Name())
		if err != nil {
			// Not one of ours; skip
			continue
		}
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if !recursive && strings.Contains(key[len(prefix):], "/") {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
