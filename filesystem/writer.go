package filesystem

import (
	"context"
	"math/rand/v2"

	"github.com/brettbedarf/blockfs"
	"github.com/brettbedarf/blockfs/store"
	"github.com/brettbedarf/blockfs/util"
)

// Writer is a sequential write cursor building a fresh block sequence.
// Bytes are buffered up to the stream buffer size and flushed into blocks
// of the configured block size, each stored under a newly allocated random
// id. The File inode record is stored only on Close, so the file is not
// visible in the namespace until then.
//
// A Writer keeps private state and is not safe for concurrent use by
// multiple goroutines on the same instance.
type Writer struct {
	ctx       context.Context
	meta      *store.MetadataStore
	blocks    *store.BlockStore
	path      string
	blockSize int64

	buf     []byte
	list    []store.Block
	cur     int64 // current block id; valid iff curOpen
	curOpen bool
	written int64 // bytes flushed into the current block
	closed  bool
}

func newWriter(ctx context.Context, meta *store.MetadataStore, blocks *store.BlockStore, path string, blockSize int64, bufSize int) *Writer {
	return &Writer{
		ctx:       ctx,
		meta:      meta,
		blocks:    blocks,
		path:      path,
		blockSize: blockSize,
		buf:       make([]byte, 0, bufSize),
	}
}

// Write buffers p, flushing full buffers into the block store. It always
// reports len(p) on success.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, blockfs.ErrStreamClosed
	}
	total := 0
	for len(p) > 0 {
		space := cap(w.buf) - len(w.buf)
		if space == 0 {
			if err := w.flush(); err != nil {
				return total, err
			}
			space = cap(w.buf)
		}
		n := len(p)
		if n > space {
			n = space
		}
		w.buf = append(w.buf, p[:n]...)
		p = p[n:]
		total += n
	}
	return total, nil
}

// Flush pushes buffered bytes into the current block.
func (w *Writer) Flush() error {
	if w.closed {
		return blockfs.ErrStreamClosed
	}
	return w.flush()
}

// flush drains the buffer into blocks, splitting at block-size boundaries
// and sealing each block that fills.
func (w *Writer) flush() error {
	data := w.buf
	for len(data) > 0 {
		if !w.curOpen {
			w.cur = newBlockID()
			w.curOpen = true
			w.written = 0
		}
		n := int64(len(data))
		if space := w.blockSize - w.written; n > space {
			n = space
		}
		if err := w.blocks.Write(w.ctx, w.cur, data[:n], w.written); err != nil {
			// Keep unflushed bytes so a retry is possible
			w.buf = append(w.buf[:0], data...)
			return err
		}
		w.written += n
		data = data[n:]
		if w.written == w.blockSize {
			w.seal()
		}
	}
	w.buf = w.buf[:0]
	return nil
}

// seal finalizes the current block into the block list.
func (w *Writer) seal() {
	w.list = append(w.list, store.Block{ID: w.cur, Length: w.written})
	w.curOpen = false
	w.written = 0
}

// Close flushes remaining bytes, seals the trailing partial block, and
// stores the File inode record, making the file visible at its path. A
// second Close is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	if err := w.flush(); err != nil {
		return err
	}
	if w.curOpen {
		w.seal()
	}
	if err := w.meta.Store(w.ctx, w.path, store.NewFileInode(w.list)); err != nil {
		return err
	}
	w.closed = true

	logger := util.GetLogger("FS.Writer")
	logger.Debug().Str("path", w.path).Int("blocks", len(w.list)).Msg("Committed file inode")
	return nil
}

// newBlockID allocates a random non-negative block id. Ids only need to be
// unique within the backend's block key space; the 63-bit draw makes a
// collision vanishingly unlikely.
func newBlockID() int64 {
	return rand.Int64()
}
