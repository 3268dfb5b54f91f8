package store

import (
	"strconv"
	"strings"
)

// Key layout over the flat backend: inode records live under the "meta"
// prefix with their full slash path appended, blocks under "block_" with
// their decimal id. The two spaces cannot collide since block keys never
// contain a slash.
const (
	metaKeyPrefix  = "meta"
	blockKeyPrefix = "block_"
)

// pathToKey maps a normalized absolute path to its record key.
// "/" -> "meta/", "/a/b" -> "meta/a/b".
func pathToKey(path string) string {
	return metaKeyPrefix + path
}

// keyToPath is the inverse of pathToKey.
func keyToPath(key string) string {
	return strings.TrimPrefix(key, metaKeyPrefix)
}

// childScanPrefix is the key prefix under which every descendant record of
// dir lives: one level with a non-recursive scan, the whole subtree with a
// recursive one.
func childScanPrefix(dir string) string {
	if dir == "/" {
		return metaKeyPrefix + "/"
	}
	return metaKeyPrefix + dir + "/"
}

// blockKey maps a block id to its object key.
func blockKey(id int64) string {
	return blockKeyPrefix + strconv.FormatInt(id, 10)
}
