// Package server ties the namespace engine to a FUSE mount.
package server

import (
	"github.com/brettbedarf/blockfs"
	"github.com/brettbedarf/blockfs/config"
	"github.com/brettbedarf/blockfs/filesystem"
	"github.com/brettbedarf/blockfs/fusefs"
	"github.com/brettbedarf/blockfs/util"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// BlockFs contains the core filesystem state and operations with
// abstractions over the underlying FUSE wire protocol implementation
type BlockFs struct {
	*filesystem.FileSystem
	cfg    *config.Config
	server *fuse.Server
}

// New creates a BlockFs over an explicit backend handle. The handle's
// lifetime is owned by the caller; the engine and every stream share it.
func New(cfg *config.Config, backend blockfs.ObjectBackend) *BlockFs {
	return &BlockFs{
		filesystem.NewFS(cfg, backend),
		cfg,
		nil,
	}
}

// Serve mounts and serves the filesystem at the given mountPoint.
func (fs *BlockFs) Serve(mountPoint string) error {
	raw := fusefs.NewRaw(fs.FileSystem)
	opts := fs.cfg.MountOptions
	srv, err := fuse.NewServer(raw, mountPoint, &fuse.MountOptions{
		Name:   opts.Name,
		FsName: opts.FsName,
		Debug:  opts.Debug || fs.cfg.LogLvl == util.TraceLevel,
		Logger: util.NewLogLogger("FuseServer", util.DebugLevel),
	})
	if err != nil {
		return err
	}
	fs.server = srv

	go srv.Serve()
	return srv.WaitMount()
}

// ServeAsync runs Serve on its own goroutine and reports the result on the
// returned channel.
func (fs *BlockFs) ServeAsync(mountPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- fs.Serve(mountPoint)
		close(done)
	}()

	return done
}

// Unmount cleanly unmounts the filesystem.
func (fs *BlockFs) Unmount() error {
	if fs.server == nil {
		return nil
	}
	return fs.server.Unmount()
}
