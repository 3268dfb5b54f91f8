package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/brettbedarf/blockfs"
	"github.com/brettbedarf/blockfs/util"
)

// MetadataStore provides CRUD over inode records keyed by absolute path,
// plus subtree enumeration. Every mutation is a single backend call; there
// is no cross-call atomicity, so multi-record operations built on top of
// this store (rename, recursive delete) are not transactional.
type MetadataStore struct {
	backend blockfs.ObjectBackend
}

// NewMetadataStore wraps the given backend handle. The handle is shared,
// not copied; its lifetime is owned by the caller.
func NewMetadataStore(backend blockfs.ObjectBackend) *MetadataStore {
	return &MetadataStore{backend: backend}
}

// Retrieve returns the inode record at path, or nil when no record exists.
// Existence is decided solely by the record's presence, never inferred
// from block objects.
func (ms *MetadataStore) Retrieve(ctx context.Context, path string) (*Inode, error) {
	key := pathToKey(path)
	info, err := ms.backend.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, blockfs.ErrNoSuchKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat inode %s: %w", path, err)
	}

	buf := make([]byte, info.Size)
	if _, err := ms.backend.Get(ctx, key, buf, 0); err != nil {
		return nil, fmt.Errorf("read inode %s: %w", path, err)
	}
	inode, err := UnmarshalInode(buf)
	if err != nil {
		return nil, fmt.Errorf("inode %s: %w", path, err)
	}
	return &inode, nil
}

// Store upserts the record at path, overwriting any prior record.
func (ms *MetadataStore) Store(ctx context.Context, path string, inode Inode) error {
	data, err := inode.Marshal()
	if err != nil {
		return fmt.Errorf("encode inode %s: %w", path, err)
	}
	if err := ms.backend.Put(ctx, pathToKey(path), data, 0); err != nil {
		return fmt.Errorf("write inode %s: %w", path, err)
	}
	logger := util.GetLogger("MetadataStore")
	logger.Trace().Str("path", path).Uint8("kind", uint8(inode.Kind)).Msg("Stored inode")
	return nil
}

// Delete removes the record at path. Deleting an absent record is a
// backend error; callers check existence first.
func (ms *MetadataStore) Delete(ctx context.Context, path string) error {
	if err := ms.backend.Delete(ctx, pathToKey(path)); err != nil {
		return fmt.Errorf("delete inode %s: %w", path, err)
	}
	return nil
}

// ListSubPaths enumerates the immediate children of dir: one backend
// prefix scan, order unspecified but stable within a single listing.
func (ms *MetadataStore) ListSubPaths(ctx context.Context, dir string) ([]string, error) {
	return ms.listPaths(ctx, dir, false)
}

// ListDeepSubPaths enumerates every descendant of dir at any depth. Used
// to relocate a subtree during rename.
func (ms *MetadataStore) ListDeepSubPaths(ctx context.Context, dir string) ([]string, error) {
	return ms.listPaths(ctx, dir, true)
}

func (ms *MetadataStore) listPaths(ctx context.Context, dir string, recursive bool) ([]string, error) {
	prefix := childScanPrefix(dir)
	keys, err := ms.backend.ListKeys(ctx, prefix, recursive)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	paths := make([]string, 0, len(keys))
	for _, key := range keys {
		// The root's own record key equals its child scan prefix
		if key == prefix {
			continue
		}
		paths = append(paths, keyToPath(key))
	}
	return paths, nil
}
