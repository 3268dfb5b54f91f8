// Package filesystem implements the namespace engine: mkdirs, delete,
// rename, listing, and create/open orchestration over the metadata and
// block stores.
//
// Every public operation is single-call-synchronous: it blocks the caller
// until the backend round-trips complete. The engine holds no locks across
// operations; each metadata or block mutation is atomic only at the
// single-key granularity the backend provides, so concurrent mutations of
// overlapping path ranges need external coordination by the caller.
package filesystem

import (
	"context"
	"errors"
	"fmt"

	"github.com/brettbedarf/blockfs"
	"github.com/brettbedarf/blockfs/config"
	"github.com/brettbedarf/blockfs/store"
	"github.com/brettbedarf/blockfs/util"
)

func isNotFound(err error) bool {
	return errors.Is(err, blockfs.ErrNotFound)
}

// FileSystem synthesizes a hierarchical namespace from per-path inode
// records. The namespace invariant: after any successfully completed
// operation, every stored path except the root has a parent path holding a
// Directory record. Missing ancestors are created before children, and a
// child is never created under a File.
type FileSystem struct {
	cfg        *config.Config
	meta       *store.MetadataStore
	blocks     *store.BlockStore
	workingDir string
}

// NewFS builds the engine over an explicit backend handle. The handle is
// shared by the metadata store, the block store, and every open stream.
func NewFS(cfg *config.Config, backend blockfs.ObjectBackend) *FileSystem {
	return &FileSystem{
		cfg:        cfg,
		meta:       store.NewMetadataStore(backend),
		blocks:     store.NewBlockStore(backend),
		workingDir: "/",
	}
}

// WorkingDirectory returns the directory relative paths qualify against.
func (fs *FileSystem) WorkingDirectory() string {
	return fs.workingDir
}

// SetWorkingDirectory changes the qualification directory. The path is not
// required to exist.
func (fs *FileSystem) SetWorkingDirectory(dir string) {
	fs.workingDir = normalize(fs.workingDir, dir)
}

func (fs *FileSystem) abs(p string) string {
	return normalize(fs.workingDir, p)
}

// Mkdirs creates a Directory record at path and at every missing ancestor,
// root included. Creation proceeds from the nearest existing ancestor's
// missing child downward, so the parent invariant holds at every step.
// Idempotent: all levels already being directories is a trivial success.
func (fs *FileSystem) Mkdirs(ctx context.Context, p string) error {
	absolutePath := fs.abs(p)
	for _, dir := range ancestorChain(absolutePath) {
		if err := fs.mkdir(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FileSystem) mkdir(ctx context.Context, dir string) error {
	inode, err := fs.meta.Retrieve(ctx, dir)
	if err != nil {
		return err
	}
	if inode == nil {
		return fs.meta.Store(ctx, dir, store.DirectoryInode)
	}
	if inode.IsFile() {
		return fmt.Errorf("can't make directory for path %s since it is a file: %w", dir, blockfs.ErrNotDir)
	}
	return nil
}

// IsFile reports whether a File record exists at path. A missing path is
// simply not a file.
func (fs *FileSystem) IsFile(ctx context.Context, p string) (bool, error) {
	inode, err := fs.meta.Retrieve(ctx, fs.abs(p))
	if err != nil {
		return false, err
	}
	return inode != nil && inode.IsFile(), nil
}

// GetStatus describes the entry at path, failing with [blockfs.ErrNotFound]
// when no record exists.
func (fs *FileSystem) GetStatus(ctx context.Context, p string) (blockfs.Status, error) {
	absolutePath := fs.abs(p)
	inode, err := fs.meta.Retrieve(ctx, absolutePath)
	if err != nil {
		return blockfs.Status{}, err
	}
	if inode == nil {
		return blockfs.Status{}, fmt.Errorf("%s: %w", absolutePath, blockfs.ErrNotFound)
	}
	return describe(absolutePath, *inode), nil
}

// ListStatus lists the entry at path: a single-element result for a file,
// one entry per immediate child for a directory. Listing cost is
// O(children) metadata reads since every child is resolved with its own
// retrieve. A concurrently deleted path surfaces as [blockfs.ErrNotFound],
// never as an empty successful listing.
func (fs *FileSystem) ListStatus(ctx context.Context, p string) ([]blockfs.Status, error) {
	absolutePath := fs.abs(p)
	inode, err := fs.meta.Retrieve(ctx, absolutePath)
	if err != nil {
		return nil, err
	}
	if inode == nil {
		return nil, fmt.Errorf("%s: %w", absolutePath, blockfs.ErrNotFound)
	}
	if inode.IsFile() {
		return []blockfs.Status{describe(absolutePath, *inode)}, nil
	}

	subPaths, err := fs.meta.ListSubPaths(ctx, absolutePath)
	if err != nil {
		return nil, err
	}
	statuses := make([]blockfs.Status, 0, len(subPaths))
	for _, subPath := range subPaths {
		status, err := fs.GetStatus(ctx, subPath)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func describe(p string, inode store.Inode) blockfs.Status {
	return blockfs.Status{
		Path:        p,
		IsDirectory: inode.IsDirectory(),
		Length:      inode.Length(),
		BlockSize:   inode.BlockSize(),
	}
}

// Delete removes the entry at path. A missing path returns (false, nil):
// nothing to delete is a first-class, non-exceptional outcome. Deleting a
// non-empty directory without recursive fails with
// [blockfs.ErrDirNotEmpty].
//
// Deletion is not atomic across records: a directory's children are
// removed one record at a time (children before parent), and a failure
// partway leaves the namespace partially deleted. Block deletions run
// after the file's metadata record is gone; block failures are logged and
// leak the block rather than aborting the delete.
func (fs *FileSystem) Delete(ctx context.Context, p string, recursive bool) (bool, error) {
	logger := util.GetLogger("FS.Delete")
	absolutePath := fs.abs(p)

	inode, err := fs.meta.Retrieve(ctx, absolutePath)
	if err != nil {
		return false, err
	}
	if inode == nil {
		logger.Debug().Str("path", absolutePath).Msg("Nothing to delete")
		return false, nil
	}

	if inode.IsFile() {
		if err := fs.meta.Delete(ctx, absolutePath); err != nil {
			return false, err
		}
		fs.deleteBlocks(ctx, absolutePath, inode.Blocks)
		return true, nil
	}

	contents, err := fs.ListStatus(ctx, absolutePath)
	if err != nil {
		// Lost a race with a concurrent deleter
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if len(contents) != 0 && !recursive {
		return false, fmt.Errorf("directory %s is not empty: %w", absolutePath, blockfs.ErrDirNotEmpty)
	}
	for _, child := range contents {
		ok, err := fs.Delete(ctx, child.Path, recursive)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if err := fs.meta.Delete(ctx, absolutePath); err != nil {
		return false, err
	}
	logger.Debug().Str("path", absolutePath).Msg("Deleted directory")
	return true, nil
}

// deleteBlocks removes a file's content blocks. The metadata record is
// already gone, so a failed block delete only orphans backend bytes; it is
// logged and never aborts the caller.
func (fs *FileSystem) deleteBlocks(ctx context.Context, p string, blocks []store.Block) {
	logger := util.GetLogger("FS.Delete")
	for _, b := range blocks {
		if err := fs.blocks.Delete(ctx, b.ID); err != nil {
			logger.Warn().Err(err).Str("path", p).Int64("block", b.ID).Msg("Leaking block after failed delete")
		}
	}
}

// Rename moves the entry at src to dst following the POSIX-flavored
// disambiguation ladder: a file renamed onto an existing directory lands
// under it; a file onto an existing different file is refused; a directory
// onto a file is refused; a directory onto a directory lands under it.
// Self-renames and moving a directory inside itself fail with
// [blockfs.ErrInvalidRename] before any mutation.
//
// Missing src or an unusable dst parent returns (false, nil) without
// mutating anything; callers treat false as a first-class outcome.
//
// The move itself is a sequence of single-record store+delete calls (the
// source record first, then each descendant found by a deep listing). It
// is not atomic: if a descendant disappears mid-traversal the rename
// aborts and reports false, leaving a partially renamed tree.
func (fs *FileSystem) Rename(ctx context.Context, src, dst string) (bool, error) {
	logger := util.GetLogger("FS.Rename")
	absoluteSrc := fs.abs(src)
	absoluteDst := fs.abs(dst)
	logger = logger.With().Str("src", absoluteSrc).Str("dst", absoluteDst).Logger()

	srcInode, err := fs.meta.Retrieve(ctx, absoluteSrc)
	if err != nil {
		return false, err
	}
	if srcInode == nil {
		logger.Debug().Msg("Returning false as src does not exist")
		return false, nil
	}

	// Validate the parent dir of the destination
	if dstParent, ok := parent(absoluteDst); ok {
		dstParentInode, err := fs.meta.Retrieve(ctx, dstParent)
		if err != nil {
			return false, err
		}
		if dstParentInode == nil {
			logger.Debug().Msg("Returning false as dst parent does not exist")
			return false, nil
		}
		if dstParentInode.IsFile() {
			logger.Debug().Msg("Returning false as dst parent exists and is a file")
			return false, nil
		}
	}

	dstInode, err := fs.meta.Retrieve(ctx, absoluteDst)
	if err != nil {
		return false, err
	}
	dstExists := dstInode != nil
	dstIsDir := dstExists && dstInode.IsDirectory()

	if srcInode.IsFile() {
		switch {
		case dstExists && dstIsDir:
			// Dest exists and is a dir: file lands under it
			absoluteDst = joinChild(absoluteDst, base(absoluteSrc))
			logger.Debug().Str("effectiveDst", absoluteDst).Msg("Moving src file under dest dir")
		case dstExists:
			// Dest is a file: succeed only for the no-op self rename,
			// never silently overwrite a different file
			if absoluteSrc == absoluteDst {
				logger.Debug().Msg("File rename onto itself is a no-op")
				return true, nil
			}
			return false, fmt.Errorf("cannot rename file %s over existing file %s: %w",
				absoluteSrc, absoluteDst, blockfs.ErrInvalidRename)
		default:
			// Dest does not exist: rename to it directly
		}
	} else {
		if dstExists && !dstIsDir {
			logger.Debug().Msg("Returning false as src is a directory, but not dest")
			return false, nil
		}
		if dstExists {
			// Dest dir exists: the moved dir becomes its subdir
			absoluteDst = joinChild(absoluteDst, base(absoluteSrc))
			logger.Debug().Str("effectiveDst", absoluteDst).Msg("Moving src dir under dest dir")
		}

		// The effective destination is now known; validate it for
		// illegal moves
		if absoluteSrc == absoluteDst {
			return false, fmt.Errorf("cannot rename directory %s onto itself: %w",
				absoluteSrc, blockfs.ErrInvalidRename)
		}
		if isStrictDescendant(absoluteSrc, absoluteDst) {
			return false, fmt.Errorf("cannot move directory %s under itself (%s): %w",
				absoluteSrc, absoluteDst, blockfs.ErrInvalidRename)
		}
	}

	return fs.renameTree(ctx, absoluteSrc, absoluteDst)
}

// renameTree relocates src (and, for directories, every descendant found
// by a deep listing) to dst by storing each inode at its rebased path and
// deleting the old record. A descendant lookup returning nothing means a
// concurrent delete won the race; the rename aborts and reports false.
func (fs *FileSystem) renameTree(ctx context.Context, src, dst string) (bool, error) {
	logger := util.GetLogger("FS.Rename")

	srcInode, err := fs.meta.Retrieve(ctx, src)
	if err != nil {
		return false, err
	}
	if srcInode == nil {
		return false, nil
	}
	if err := fs.meta.Store(ctx, dst, *srcInode); err != nil {
		return false, err
	}
	if err := fs.meta.Delete(ctx, src); err != nil {
		return false, err
	}
	if !srcInode.IsDirectory() {
		return true, nil
	}

	oldPaths, err := fs.meta.ListDeepSubPaths(ctx, src)
	if err != nil {
		return false, err
	}
	for _, oldPath := range oldPaths {
		inode, err := fs.meta.Retrieve(ctx, oldPath)
		if err != nil {
			return false, err
		}
		if inode == nil {
			logger.Warn().Str("path", oldPath).Msg("Descendant disappeared mid-rename, aborting")
			return false, nil
		}
		newPath := rebase(oldPath, src, dst)
		if err := fs.meta.Store(ctx, newPath, *inode); err != nil {
			return false, err
		}
		if err := fs.meta.Delete(ctx, oldPath); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Create opens a write cursor over a fresh block sequence at path. An
// existing record fails with [blockfs.ErrExists] unless overwrite is set,
// in which case the prior file and its blocks are deleted first. The
// parent chain is created as needed (mkdirs semantics). The File record
// becomes visible when the returned writer is closed.
func (fs *FileSystem) Create(ctx context.Context, p string, overwrite bool) (*Writer, error) {
	absolutePath := fs.abs(p)

	inode, err := fs.meta.Retrieve(ctx, absolutePath)
	if err != nil {
		return nil, err
	}
	if inode != nil {
		if !overwrite {
			return nil, fmt.Errorf("%s: %w", absolutePath, blockfs.ErrExists)
		}
		if inode.IsDirectory() {
			return nil, fmt.Errorf("%s: %w", absolutePath, blockfs.ErrIsDir)
		}
		if _, err := fs.Delete(ctx, absolutePath, true); err != nil {
			return nil, err
		}
	} else {
		if dirPath, ok := parent(absolutePath); ok {
			if err := fs.Mkdirs(ctx, dirPath); err != nil {
				return nil, err
			}
		}
	}
	return newWriter(ctx, fs.meta, fs.blocks, absolutePath, fs.cfg.BlockSize, fs.cfg.StreamBufferSize), nil
}

// Open returns a read cursor over the file's block sequence, failing with
// [blockfs.ErrNotFound] for a missing path and [blockfs.ErrIsDir] for a
// directory.
func (fs *FileSystem) Open(ctx context.Context, p string) (*Reader, error) {
	absolutePath := fs.abs(p)
	inode, err := fs.meta.Retrieve(ctx, absolutePath)
	if err != nil {
		return nil, err
	}
	if inode == nil {
		return nil, fmt.Errorf("%s: %w", absolutePath, blockfs.ErrNotFound)
	}
	if inode.IsDirectory() {
		return nil, fmt.Errorf("%s: %w", absolutePath, blockfs.ErrIsDir)
	}
	return newReader(ctx, fs.blocks, inode.Blocks, fs.cfg.StreamBufferSize), nil
}
