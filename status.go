package blockfs

// Status describes one namespace entry as exposed to the filesystem-API
// adapter shell.
type Status struct {
	// Path is the absolute, normalized path of the entry.
	Path string

	// IsDirectory reports the inode kind.
	IsDirectory bool

	// Length is the sum of block lengths for files, 0 for directories.
	Length int64

	// BlockSize is the length of the file's first block, 0 when the
	// entry is a directory or a blockless file.
	BlockSize int64
}
