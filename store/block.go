package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brettbedarf/blockfs"
)

// BlockStore stores file content keyed by opaque numeric block ids. Blocks
// are write-once-then-append by offset; there is no block-level locking,
// so concurrent writers to the same block race at the byte-range level.
// Stream owners serialize their own access.
type BlockStore struct {
	backend blockfs.ObjectBackend
}

// NewBlockStore wraps the given backend handle (shared, not copied).
func NewBlockStore(backend blockfs.ObjectBackend) *BlockStore {
	return &BlockStore{backend: backend}
}

// Write stores p starting at byte offset within the block.
func (bs *BlockStore) Write(ctx context.Context, id int64, p []byte, offset int64) error {
	if err := bs.backend.Put(ctx, blockKey(id), p, offset); err != nil {
		return fmt.Errorf("write block %d: %w", id, err)
	}
	return nil
}

// Read returns up to length bytes starting at offset. Fewer bytes come
// back at end-of-object; reading at or past the end returns an empty
// slice, not an error.
func (bs *BlockStore) Read(ctx context.Context, id int64, length int, offset int64) ([]byte, error) {
	buf := make([]byte, length)
	n, err := bs.backend.Get(ctx, blockKey(id), buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read block %d: %w", id, err)
	}
	return buf[:n], nil
}

// Delete removes the block object.
func (bs *BlockStore) Delete(ctx context.Context, id int64) error {
	if err := bs.backend.Delete(ctx, blockKey(id)); err != nil {
		return fmt.Errorf("delete block %d: %w", id, err)
	}
	return nil
}

// ListIDs enumerates every stored block id, including blocks orphaned by
// failed deletes. Diagnostic use only.
func (bs *BlockStore) ListIDs(ctx context.Context) ([]int64, error) {
	keys, err := bs.backend.ListKeys(ctx, blockKeyPrefix, true)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		id, err := strconv.ParseInt(strings.TrimPrefix(key, blockKeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
