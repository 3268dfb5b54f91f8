package fusefs

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/brettbedarf/blockfs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
)

func TestAttrOf(t *testing.T) {
	t.Parallel()

	attr := attrOf(blockfs.Status{Path: "/f", Length: 1025, BlockSize: 8}, 7)
	assert.EqualValues(t, 7, attr.Ino)
	assert.EqualValues(t, 1025, attr.Size)
	assert.EqualValues(t, syscall.S_IFREG|0o644, attr.Mode)
	// 512-byte units, rounded up
	assert.EqualValues(t, 3, attr.Blocks)

	attr = attrOf(blockfs.Status{Path: "/d", IsDirectory: true}, 2)
	assert.EqualValues(t, syscall.S_IFDIR|0o755, attr.Mode)
	assert.Zero(t, attr.Blocks)
}

func TestChildPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/a", childPath("/", "a"))
	assert.Equal(t, "/a/b", childPath("/a", "b"))
}

func TestErrno(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want fuse.Status
	}{
		{nil, fuse.OK},
		{fmt.Errorf("/x: %w", blockfs.ErrNotFound), fuse.ENOENT},
		{fmt.Errorf("/x: %w", blockfs.ErrExists), fuse.Status(syscall.EEXIST)},
		{fmt.Errorf("/x: %w", blockfs.ErrNotDir), fuse.ENOTDIR},
		{fmt.Errorf("/x: %w", blockfs.ErrIsDir), fuse.EISDIR},
		{fmt.Errorf("/x: %w", blockfs.ErrDirNotEmpty), fuse.Status(syscall.ENOTEMPTY)},
		{fmt.Errorf("/x: %w", blockfs.ErrInvalidRename), fuse.EINVAL},
		{fmt.Errorf("backend exploded"), fuse.EIO},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errno(tt.err), "%v", tt.err)
	}
}
