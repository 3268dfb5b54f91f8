package blockfs

import "errors"

// Namespace error taxonomy. The engine translates backend outcomes plus its
// own invariant checks into these; callers test with [errors.Is]. Backend
// IO failures are wrapped with %w and carry the failing key.
var (
	// ErrNotFound means no inode record exists at the path.
	ErrNotFound = errors.New("no such file or directory")

	// ErrExists means an inode record already exists at the path.
	ErrExists = errors.New("file already exists")

	// ErrNotDir means a path expected to be a directory holds a file.
	ErrNotDir = errors.New("not a directory")

	// ErrIsDir means a path expected to be a file holds a directory.
	ErrIsDir = errors.New("is a directory")

	// ErrDirNotEmpty blocks a non-recursive delete of a non-empty dir.
	ErrDirNotEmpty = errors.New("directory not empty")

	// ErrInvalidRename covers self-rename, moving a directory inside
	// itself, and file-over-file overwrites.
	ErrInvalidRename = errors.New("invalid rename")

	// ErrStreamClosed is returned by cursor operations after Close.
	ErrStreamClosed = errors.New("stream closed")

	// ErrNoSuchKey is returned (wrapped) by backends when the requested
	// object key does not exist. The metadata store maps it to record
	// absence; everywhere else it surfaces as an IO failure.
	ErrNoSuchKey = errors.New("no such key")
)
