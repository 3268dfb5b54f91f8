package store

import (
	"context"
	"testing"

	"github.com/brettbedarf/blockfs/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStores(t *testing.T) (*MetadataStore, *BlockStore) {
	t.Helper()
	be := backend.NewMemory()
	return NewMetadataStore(be), NewBlockStore(be)
}

func TestMetadataStore_StoreRetrieveRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ms, _ := newTestStores(t)

	want := NewFileInode([]Block{{ID: 7, Length: 99}})
	require.NoError(t, ms.Store(ctx, "/a", want))

	got, err := ms.Retrieve(ctx, "/a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestMetadataStore_RetrieveMissing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ms, _ := newTestStores(t)

	got, err := ms.Retrieve(ctx, "/nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMetadataStore_StoreOverwrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ms, _ := newTestStores(t)

	// Longer record first so the upsert has to shadow stale bytes
	require.NoError(t, ms.Store(ctx, "/a", NewFileInode([]Block{{ID: 1, Length: 1}, {ID: 2, Length: 2}, {ID: 3, Length: 3}})))
	require.NoError(t, ms.Store(ctx, "/a", DirectoryInode))

	got, err := ms.Retrieve(ctx, "/a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsDirectory())
}

func TestMetadataStore_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ms, _ := newTestStores(t)

	require.NoError(t, ms.Store(ctx, "/a", DirectoryInode))
	require.NoError(t, ms.Delete(ctx, "/a"))

	got, err := ms.Retrieve(ctx, "/a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMetadataStore_ListSubPaths(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ms, _ := newTestStores(t)

	for _, p := range []string{"/", "/a", "/a/x", "/a/y", "/a/y/deep", "/b"} {
		require.NoError(t, ms.Store(ctx, p, DirectoryInode))
	}

	children, err := ms.ListSubPaths(ctx, "/a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/a/x", "/a/y"}, children)

	rootChildren, err := ms.ListSubPaths(ctx, "/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/a", "/b"}, rootChildren)
}

func TestMetadataStore_ListDeepSubPaths(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ms, _ := newTestStores(t)

	for _, p := range []string{"/", "/a", "/a/x", "/a/x/1", "/a/x/1/2", "/b"} {
		require.NoError(t, ms.Store(ctx, p, DirectoryInode))
	}

	deep, err := ms.ListDeepSubPaths(ctx, "/a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/a/x", "/a/x/1", "/a/x/1/2"}, deep)
}

func TestBlockStore_WriteReadDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, bs := newTestStores(t)

	require.NoError(t, bs.Write(ctx, 42, []byte{0, 1, 2, 3}, 0))

	got, err := bs.Read(ctx, 42, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3}, got)

	// Append at offset and read the tail back
	require.NoError(t, bs.Write(ctx, 42, []byte{4, 5}, 4))
	got, err = bs.Read(ctx, 42, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 4, 5}, got)

	require.NoError(t, bs.Delete(ctx, 42))
	_, err = bs.Read(ctx, 42, 1, 0)
	assert.Error(t, err)
}

func TestBlockStore_ReadPastEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, bs := newTestStores(t)

	require.NoError(t, bs.Write(ctx, 1, []byte("abc"), 0))

	got, err := bs.Read(ctx, 1, 4, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBlockStore_ListIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ms, bs := newTestStores(t)

	// Inode records must not leak into the block id space
	require.NoError(t, ms.Store(ctx, "/a", DirectoryInode))
	require.NoError(t, bs.Write(ctx, 5, []byte("x"), 0))
	require.NoError(t, bs.Write(ctx, 9, []byte("y"), 0))

	ids, err := bs.ListIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{5, 9}, ids)
}
