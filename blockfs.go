// Package blockfs layers a POSIX-like hierarchical namespace (directories,
// files, rename, recursive delete, listing) on top of a flat, key-addressed
// object store. The backend only knows put/get/stat/delete over named byte
// blobs; every hierarchical operation is synthesized from per-path inode
// records, while file content is stored separately as a sequence of
// fixed-identity blocks.
//
// The root package holds the types shared between the stores, the namespace
// engine, and backend implementations. The engine itself lives in
// [github.com/brettbedarf/blockfs/filesystem].
package blockfs

import "context"

// ObjectInfo describes a stored object as reported by the backend.
type ObjectInfo struct {
	// Size is the object's current length in bytes.
	Size int64
}

// ObjectBackend is the flat key/byte-range store beneath the namespace
// engine. Implementations provide no hierarchy and no multi-key atomicity;
// each call is atomic only at single-key granularity.
//
// The backend handle is an explicit value passed into every store and
// stream constructor. It is shared, not copied, by whatever session created
// it; there is no process-wide singleton.
type ObjectBackend interface {
	// Put writes len(p) bytes starting at byte offset within the object
	// identified by key, creating the object if it does not exist.
	Put(ctx context.Context, key string, p []byte, offset int64) error

	// Get reads up to len(p) bytes starting at offset into p and returns
	// the number of bytes read. Fewer bytes than len(p) are returned at
	// end-of-object; reading at or past the end returns 0, io.EOF.
	Get(ctx context.Context, key string, p []byte, offset int64) (int, error)

	// Stat returns the object's metadata. A missing key is a backend
	// error; callers that need existence checks keep their own records.
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	// Delete removes the object. Deleting a missing key is an error.
	Delete(ctx context.Context, key string) error

	// ListKeys enumerates stored keys beginning with prefix. When
	// recursive is false only keys with no further "/" separator past the
	// prefix are returned; order is unspecified but stable within a
	// single listing.
	ListKeys(ctx context.Context, prefix string, recursive bool) ([]string, error)
}
