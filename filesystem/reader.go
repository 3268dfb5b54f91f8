package filesystem

import (
	"context"
	"fmt"
	"io"

	"github.com/brettbedarf/blockfs"
	"github.com/brettbedarf/blockfs/store"
)

// Reader is a sequential read cursor over a file's block sequence. It
// keeps a private position and is not safe for concurrent use by multiple
// goroutines; the owner serializes access, which guarantees no overlapping
// in-flight byte-range reads from the same cursor.
type Reader struct {
	ctx     context.Context
	blocks  *store.BlockStore
	list    []store.Block
	size    int64
	bufSize int
	pos     int64
	closed  bool
}

var (
	_ io.ReadSeekCloser = (*Reader)(nil)
	_ io.ReaderAt       = (*Reader)(nil)
)

func newReader(ctx context.Context, blocks *store.BlockStore, list []store.Block, bufSize int) *Reader {
	var size int64
	for _, b := range list {
		size += b.Length
	}
	return &Reader{
		ctx:     ctx,
		blocks:  blocks,
		list:    list,
		size:    size,
		bufSize: bufSize,
	}
}

// Size returns the file's logical length, summed from block metadata.
func (r *Reader) Size() int64 {
	return r.size
}

// Read fills p from the cursor position and advances it. At most one block
// is touched per call, so reads spanning a block boundary return short.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, blockfs.ErrStreamClosed
	}
	if r.pos >= r.size {
		return 0, io.EOF
	}

	b, blockOffset := r.locate(r.pos)
	want := int64(len(p))
	if remain := b.Length - blockOffset; want > remain {
		want = remain
	}
	data, err := r.blocks.Read(r.ctx, b.ID, int(want), blockOffset)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		// Metadata says there are bytes here but the backend disagrees
		return 0, fmt.Errorf("block %d shorter than its recorded length %d", b.ID, b.Length)
	}
	n := copy(p, data)
	r.pos += int64(n)
	return n, nil
}

// ReadAt reads into p at the given absolute offset without moving the
// cursor. Like Read it touches at most one block per call.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if r.closed {
		return 0, blockfs.ErrStreamClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= r.size {
		return 0, io.EOF
	}

	b, blockOffset := r.locate(off)
	want := int64(len(p))
	if remain := b.Length - blockOffset; want > remain {
		want = remain
	}
	data, err := r.blocks.Read(r.ctx, b.ID, int(want), blockOffset)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("block %d shorter than its recorded length %d", b.ID, b.Length)
	}
	return copy(p, data), nil
}

// locate maps an absolute file offset onto (block, offset-within-block).
// Caller guarantees off < r.size.
func (r *Reader) locate(off int64) (store.Block, int64) {
	var start int64
	for _, b := range r.list {
		if off < start+b.Length {
			return b, off - start
		}
		start += b.Length
	}
	// unreachable given the size check
	last := r.list[len(r.list)-1]
	return last, last.Length
}

// Seek repositions the cursor per [io.Seeker] semantics. Seeking past the
// end is allowed; the next Read reports EOF.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if r.closed {
		return 0, blockfs.ErrStreamClosed
	}
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = r.pos + offset
	case io.SeekEnd:
		next = r.size + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative position %d", next)
	}
	r.pos = next
	return next, nil
}

// Close releases the cursor. Further operations fail with
// [blockfs.ErrStreamClosed]; closing twice is a no-op.
func (r *Reader) Close() error {
	r.closed = true
	return nil
}
