// Package fusefs bridges the namespace engine onto the low-level FUSE
// wire protocol. It is a thin protocol adapter: node ids and file handles
// are session-local, allocated on demand, and map to engine paths and open
// cursors.
package fusefs

import (
	"context"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/brettbedarf/blockfs"
	"github.com/brettbedarf/blockfs/filesystem"
	"github.com/brettbedarf/blockfs/util"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/puzpuzpuz/xsync/v4"
)

const (
	attrTimeoutSecs  = 1
	entryTimeoutSecs = 1
)

// Raw implements the low-level FUSE wire protocol over a
// [filesystem.FileSystem]. See https://www.man7.org/linux/man-pages/man4/fuse.4.html
type Raw struct {
	fuse.RawFileSystem
	fs  *filesystem.FileSystem
	ctx context.Context

	mu         sync.Mutex                // guards node id allocation
	nodes      *xsync.Map[uint64, string] // nodeID -> path
	ids        *xsync.Map[string, uint64] // path -> nodeID
	lastNodeID atomic.Uint64

	handles *xsync.Map[uint64, *handle]
	lastFH  atomic.Uint64

	server *fuse.Server
}

// handle is one open file: exactly one of reader/writer is set.
type handle struct {
	reader *filesystem.Reader
	writer *filesystem.Writer
	wpos   int64 // next expected write offset; writes are sequential only
}

func NewRaw(fs *filesystem.FileSystem) *Raw {
	r := &Raw{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		fs:            fs,
		ctx:           context.Background(),
		nodes:         xsync.NewMap[uint64, string](),
		ids:           xsync.NewMap[string, uint64](),
		handles:       xsync.NewMap[uint64, *handle](),
	}
	r.nodes.Store(fuse.FUSE_ROOT_ID, "/")
	r.ids.Store("/", fuse.FUSE_ROOT_ID)
	r.lastNodeID.Store(fuse.FUSE_ROOT_ID)
	return r
}

func (r *Raw) Init(s *fuse.Server) {
	logger := util.GetLogger("Fuse.Init")
	logger.Debug().Msg("FUSE initialized")
	r.server = s
}

func (r *Raw) OnUnmount() {
	logger := util.GetLogger("Fuse.OnUnmount")
	logger.Info().Msg("FUSE unmounted")
}

func (r *Raw) String() string {
	return "blockfs"
}

// pathOf resolves a kernel node id to its engine path.
func (r *Raw) pathOf(nodeID uint64) (string, bool) {
	return r.nodes.Load(nodeID)
}

// idFor returns the stable node id for path, allocating one on first use.
func (r *Raw) idFor(path string) uint64 {
	if id, ok := r.ids.Load(path); ok {
		return id
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids.Load(path); ok {
		return id
	}
	id := r.lastNodeID.Add(1)
	r.ids.Store(path, id)
	r.nodes.Store(id, path)
	return id
}

// forgetPath drops the registry entries for a path that no longer exists.
func (r *Raw) forgetPath(path string) {
	if id, ok := r.ids.LoadAndDelete(path); ok {
		r.nodes.Delete(id)
	}
}

// Access allows everything; permission bits are not part of the record
// model.
func (r *Raw) Access(cancel <-chan struct{}, input *fuse.AccessIn) fuse.Status {
	return fuse.OK
}

func (r *Raw) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	logger := util.GetLogger("Fuse.Lookup")
	dir, ok := r.pathOf(header.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	path := childPath(dir, name)
	status, err := r.fs.GetStatus(r.ctx, path)
	if err != nil {
		logger.Trace().Err(err).Str("path", path).Msg("Lookup miss")
		return errno(err)
	}
	r.fillEntryOut(status, out)
	return fuse.OK
}

func (r *Raw) Forget(nodeid, nlookup uint64) {
	if path, ok := r.nodes.LoadAndDelete(nodeid); ok {
		r.ids.Delete(path)
	}
}

func (r *Raw) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	path, ok := r.pathOf(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	status, err := r.fs.GetStatus(r.ctx, path)
	if err != nil {
		return errno(err)
	}
	out.Attr = attrOf(status, input.NodeId)
	out.SetTimeout(attrTimeoutSecs)
	return fuse.OK
}

// SetAttr acknowledges attribute changes without recording them; the inode
// model carries no permissions or times.
func (r *Raw) SetAttr(cancel <-chan struct{}, input *fuse.SetAttrIn, out *fuse.AttrOut) fuse.Status {
	path, ok := r.pathOf(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	status, err := r.fs.GetStatus(r.ctx, path)
	if err != nil {
		return errno(err)
	}
	out.Attr = attrOf(status, input.NodeId)
	out.SetTimeout(attrTimeoutSecs)
	return fuse.OK
}

func (r *Raw) Mkdir(cancel <-chan struct{}, input *fuse.MkdirIn, name string, out *fuse.EntryOut) fuse.Status {
	dir, ok := r.pathOf(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	path := childPath(dir, name)
	if err := r.fs.Mkdirs(r.ctx, path); err != nil {
		return errno(err)
	}
	status, err := r.fs.GetStatus(r.ctx, path)
	if err != nil {
		return errno(err)
	}
	r.fillEntryOut(status, out)
	return fuse.OK
}

func (r *Raw) Unlink(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	dir, ok := r.pathOf(header.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	path := childPath(dir, name)
	deleted, err := r.fs.Delete(r.ctx, path, false)
	if err != nil {
		return errno(err)
	}
	if !deleted {
		return fuse.ENOENT
	}
	r.forgetPath(path)
	return fuse.OK
}

func (r *Raw) Rmdir(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	dir, ok := r.pathOf(header.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	path := childPath(dir, name)
	deleted, err := r.fs.Delete(r.ctx, path, false)
	if err != nil {
		return errno(err)
	}
	if !deleted {
		return fuse.ENOENT
	}
	r.forgetPath(path)
	return fuse.OK
}

func (r *Raw) Rename(cancel <-chan struct{}, input *fuse.RenameIn, oldName, newName string) fuse.Status {
	srcDir, ok := r.pathOf(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	dstDir, ok := r.pathOf(input.Newdir)
	if !ok {
		return fuse.ENOENT
	}
	src := childPath(srcDir, oldName)
	dst := childPath(dstDir, newName)
	renamed, err := r.fs.Rename(r.ctx, src, dst)
	if err != nil {
		return errno(err)
	}
	if !renamed {
		return fuse.ENOENT
	}
	r.forgetPath(src)
	return fuse.OK
}

func (r *Raw) Create(cancel <-chan struct{}, input *fuse.CreateIn, name string, out *fuse.CreateOut) fuse.Status {
	dir, ok := r.pathOf(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	path := childPath(dir, name)
	w, err := r.fs.Create(r.ctx, path, true)
	if err != nil {
		return errno(err)
	}
	fh := r.lastFH.Add(1)
	r.handles.Store(fh, &handle{writer: w})

	id := r.idFor(path)
	out.NodeId = id
	out.Attr = attrOf(blockfs.Status{Path: path}, id)
	out.SetAttrTimeout(attrTimeoutSecs)
	out.SetEntryTimeout(entryTimeoutSecs)
	out.Fh = fh
	return fuse.OK
}

func (r *Raw) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	path, ok := r.pathOf(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}

	if input.Flags&uint32(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		w, err := r.fs.Create(r.ctx, path, true)
		if err != nil {
			return errno(err)
		}
		fh := r.lastFH.Add(1)
		r.handles.Store(fh, &handle{writer: w})
		out.Fh = fh
		return fuse.OK
	}

	rd, err := r.fs.Open(r.ctx, path)
	if err != nil {
		return errno(err)
	}
	fh := r.lastFH.Add(1)
	r.handles.Store(fh, &handle{reader: rd})
	out.Fh = fh
	return fuse.OK
}

func (r *Raw) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	h, ok := r.handles.Load(input.Fh)
	if !ok || h.reader == nil {
		return nil, fuse.EBADF
	}
	// Cursors split reads at block boundaries, so loop until the kernel's
	// buffer is satisfied or the file ends
	total := 0
	for total < len(buf) {
		n, err := h.reader.ReadAt(buf[total:], int64(input.Offset)+int64(total))
		if n > 0 {
			total += n
		}
		if err != nil {
			break
		}
	}
	return fuse.ReadResultData(buf[:total]), fuse.OK
}

func (r *Raw) Write(cancel <-chan struct{}, input *fuse.WriteIn, data []byte) (uint32, fuse.Status) {
	h, ok := r.handles.Load(input.Fh)
	if !ok || h.writer == nil {
		return 0, fuse.EBADF
	}
	// Block sequences only grow at the tail; no random-access writes
	if int64(input.Offset) != h.wpos {
		return 0, fuse.EINVAL
	}
	n, err := h.writer.Write(data)
	if err != nil {
		return uint32(n), fuse.EIO
	}
	h.wpos += int64(n)
	return uint32(n), fuse.OK
}

func (r *Raw) Flush(cancel <-chan struct{}, input *fuse.FlushIn) fuse.Status {
	h, ok := r.handles.Load(input.Fh)
	if !ok {
		return fuse.EBADF
	}
	if h.writer != nil {
		if err := h.writer.Flush(); err != nil {
			return fuse.EIO
		}
	}
	return fuse.OK
}

func (r *Raw) Release(cancel <-chan struct{}, input *fuse.ReleaseIn) {
	logger := util.GetLogger("Fuse.Release")
	h, ok := r.handles.LoadAndDelete(input.Fh)
	if !ok {
		return
	}
	var err error
	if h.writer != nil {
		err = h.writer.Close()
	} else if h.reader != nil {
		err = h.reader.Close()
	}
	if err != nil {
		logger.Error().Err(err).Uint64("fh", input.Fh).Msg("Failed to close handle")
	}
}

func (r *Raw) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	return fuse.OK
}

func (r *Raw) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	return r.readDir(input, out, false)
}

func (r *Raw) ReadDirPlus(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	return r.readDir(input, out, true)
}

func (r *Raw) readDir(input *fuse.ReadIn, out *fuse.DirEntryList, plus bool) fuse.Status {
	dir, ok := r.pathOf(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	statuses, err := r.fs.ListStatus(r.ctx, dir)
	if err != nil {
		return errno(err)
	}

	// Offset indexes into the stable listing from this call; the kernel
	// re-reads from 0 after changes
	for i := int(input.Offset); i < len(statuses); i++ {
		status := statuses[i]
		id := r.idFor(status.Path)
		entry := fuse.DirEntry{
			Name: base(status.Path),
			Mode: modeOf(status),
			Ino:  id,
		}
		if plus {
			entryOut := out.AddDirLookupEntry(entry)
			if entryOut == nil {
				break
			}
			entryOut.NodeId = id
			entryOut.Attr = attrOf(status, id)
			entryOut.SetAttrTimeout(attrTimeoutSecs)
			entryOut.SetEntryTimeout(entryTimeoutSecs)
		} else if !out.AddDirEntry(entry) {
			break
		}
	}
	return fuse.OK
}

func (r *Raw) StatFs(cancel <-chan struct{}, input *fuse.InHeader, out *fuse.StatfsOut) fuse.Status {
	out.NameLen = 255
	out.Bsize = 4096
	return fuse.OK
}

func (r *Raw) fillEntryOut(status blockfs.Status, out *fuse.EntryOut) {
	id := r.idFor(status.Path)
	out.NodeId = id
	out.Attr = attrOf(status, id)
	out.SetAttrTimeout(attrTimeoutSecs)
	out.SetEntryTimeout(entryTimeoutSecs)
}
