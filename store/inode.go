// Package store implements the persistence layer of the namespace: inode
// metadata records keyed by absolute path and content blocks keyed by
// opaque numeric ids, both laid out over a flat [blockfs.ObjectBackend].
package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Kind discriminates the two inode variants. The numeric values are part
// of the persisted record format; never renumber.
type Kind uint8

const (
	KindDirectory Kind = 1
	KindFile      Kind = 2
)

// Block holds metadata about one unit of file content. A block is owned by
// exactly one inode; blocks are never shared. ID is the key used against
// the block store, Length is the authoritative byte count regardless of
// what the backend independently reports.
type Block struct {
	ID     int64 `cbor:"id"`
	Length int64 `cbor:"len"`
}

func (b Block) String() string {
	return fmt.Sprintf("Block[%d, %d]", b.ID, b.Length)
}

// Inode is the metadata record describing one namespace entry: a tagged
// variant over directory and file. Directories carry no block list; files
// carry the ordered blocks their bytes are split into.
//
// An inode's kind is immutable after creation. To change a path's kind the
// record at that path must be deleted and a fresh one stored.
type Inode struct {
	Kind   Kind    `cbor:"kind"`
	Blocks []Block `cbor:"blocks,omitempty"`
}

// DirectoryInode is the canonical record stored for every directory.
var DirectoryInode = Inode{Kind: KindDirectory}

// NewFileInode builds a file record over the given ordered block list.
func NewFileInode(blocks []Block) Inode {
	return Inode{Kind: KindFile, Blocks: blocks}
}

// IsFile reports whether the inode is the file variant.
func (in Inode) IsFile() bool { return in.Kind == KindFile }

// IsDirectory reports whether the inode is the directory variant.
func (in Inode) IsDirectory() bool { return in.Kind == KindDirectory }

// Length is the logical byte length: the sum of block lengths for files,
// always 0 for directories.
func (in Inode) Length() int64 {
	if in.IsDirectory() {
		return 0
	}
	var length int64
	for _, b := range in.Blocks {
		length += b.Length
	}
	return length
}

// BlockSize is the length of the first block, or 0 when there are none.
func (in Inode) BlockSize() int64 {
	if len(in.Blocks) == 0 {
		return 0
	}
	return in.Blocks[0].Length
}

// CBOR with Core Deterministic Encoding: the same inode always produces
// identical record bytes.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes the inode into its persisted record form.
func (in Inode) Marshal() ([]byte, error) {
	return encMode.Marshal(in)
}

// UnmarshalInode decodes a persisted record. Trailing bytes past the first
// CBOR item are ignored so that a record shrunk in place by a later store
// still decodes. A record with an unknown kind is malformed.
func UnmarshalInode(data []byte) (Inode, error) {
	var in Inode
	if _, err := decMode.UnmarshalFirst(data, &in); err != nil {
		return Inode{}, fmt.Errorf("malformed inode record: %w", err)
	}
	switch in.Kind {
	case KindDirectory, KindFile:
	default:
		return Inode{}, fmt.Errorf("malformed inode record: unknown kind %d", in.Kind)
	}
	if in.IsDirectory() && len(in.Blocks) > 0 {
		return Inode{}, fmt.Errorf("malformed inode record: directory with %d blocks", len(in.Blocks))
	}
	return in, nil
}
