package filesystem

import (
	"context"

	"github.com/brettbedarf/blockfs/util"
)

// Diagnostic operations. Neither is part of the namespace contract; both
// walk the raw record space rather than the hierarchy, so they also reach
// entries a broken namespace can no longer resolve.

// Dump logs every stored inode record.
func (fs *FileSystem) Dump(ctx context.Context) error {
	logger := util.GetLogger("FS.Dump")

	paths, err := fs.allPaths(ctx)
	if err != nil {
		return err
	}
	for _, p := range paths {
		inode, err := fs.meta.Retrieve(ctx, p)
		if err != nil {
			return err
		}
		if inode == nil {
			continue
		}
		logger.Info().
			Str("path", p).
			Bool("dir", inode.IsDirectory()).
			Int64("length", inode.Length()).
			Int("blocks", len(inode.Blocks)).
			Msg("Inode")
	}
	return nil
}

// Purge deletes every inode record and every block, including blocks
// orphaned by earlier failed deletes. The escape hatch for reclaiming
// leaked backend space.
func (fs *FileSystem) Purge(ctx context.Context) error {
	logger := util.GetLogger("FS.Purge")

	paths, err := fs.allPaths(ctx)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := fs.meta.Delete(ctx, p); err != nil {
			return err
		}
	}

	ids, err := fs.blocks.ListIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := fs.blocks.Delete(ctx, id); err != nil {
			return err
		}
	}
	logger.Info().Int("inodes", len(paths)).Int("blocks", len(ids)).Msg("Purged store")
	return nil
}

// allPaths returns the root (when recorded) plus every descendant record.
func (fs *FileSystem) allPaths(ctx context.Context) ([]string, error) {
	var paths []string
	root, err := fs.meta.Retrieve(ctx, "/")
	if err != nil {
		return nil, err
	}
	if root != nil {
		paths = append(paths, "/")
	}
	deep, err := fs.meta.ListDeepSubPaths(ctx, "/")
	if err != nil {
		return nil, err
	}
	return append(paths, deep...), nil
}
