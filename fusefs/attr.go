package fusefs

import (
	"errors"
	gopath "path"
	"syscall"

	"github.com/brettbedarf/blockfs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// attrOf maps a namespace Status onto FUSE attributes. The record model
// carries no ownership, permissions, or times; directories present as
// rwxr-xr-x and files as rw-r--r--.
func attrOf(status blockfs.Status, ino uint64) fuse.Attr {
	attr := fuse.Attr{
		Ino:     ino,
		Size:    uint64(status.Length),
		Mode:    modeOf(status),
		Nlink:   1,
		Blksize: 4096,
	}
	if status.BlockSize > 0 {
		// 512-byte units, rounded up
		attr.Blocks = (uint64(status.Length) + 511) / 512
	}
	return attr
}

func modeOf(status blockfs.Status) uint32 {
	if status.IsDirectory {
		return uint32(syscall.S_IFDIR | 0o755)
	}
	return uint32(syscall.S_IFREG | 0o644)
}

func childPath(dir, name string) string {
	return gopath.Join(dir, name)
}

func base(p string) string {
	return gopath.Base(p)
}

// errno translates namespace errors into FUSE status codes.
func errno(err error) fuse.Status {
	switch {
	case err == nil:
		return fuse.OK
	case errors.Is(err, blockfs.ErrNotFound):
		return fuse.ENOENT
	case errors.Is(err, blockfs.ErrExists):
		return fuse.Status(syscall.EEXIST)
	case errors.Is(err, blockfs.ErrNotDir):
		return fuse.ENOTDIR
	case errors.Is(err, blockfs.ErrIsDir):
		return fuse.EISDIR
	case errors.Is(err, blockfs.ErrDirNotEmpty):
		return fuse.Status(syscall.ENOTEMPTY)
	case errors.Is(err, blockfs.ErrInvalidRename):
		return fuse.EINVAL
	default:
		return fuse.EIO
	}
}
