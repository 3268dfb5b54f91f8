package backend

import (
	"context"
	"io"
	"testing"

	"github.com/brettbedarf/blockfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PutGetRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "k", []byte{0, 1, 2, 3}, 0))

	buf := make([]byte, 4)
	n, err := m.Get(ctx, "k", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0, 1, 2, 3}, buf)
}

func TestMemory_PutAtOffsetExtends(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "k", []byte("abc"), 0))
	require.NoError(t, m.Put(ctx, "k", []byte("def"), 3))

	info, err := m.Stat(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.Size)

	buf := make([]byte, 6)
	n, err := m.Get(ctx, "k", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(buf[:n]))
}

func TestMemory_PutOverwritesRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "k", []byte("aaaa"), 0))
	require.NoError(t, m.Put(ctx, "k", []byte("bb"), 1))

	buf := make([]byte, 4)
	n, err := m.Get(ctx, "k", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "abba", string(buf[:n]))
}

func TestMemory_GetShortAtEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "k", []byte("abcdef"), 0))

	buf := make([]byte, 10)
	n, err := m.Get(ctx, "k", buf, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "ef", string(buf[:n]))
}

func TestMemory_GetPastEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "k", []byte("abc"), 0))

	buf := make([]byte, 4)
	_, err := m.Get(ctx, "k", buf, 3)
	assert.ErrorIs(t, err, io.EOF)
}

func TestMemory_MissingKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	buf := make([]byte, 1)
	_, err := m.Get(ctx, "missing", buf, 0)
	assert.ErrorIs(t, err, blockfs.ErrNoSuchKey)

	_, err = m.Stat(ctx, "missing")
	assert.ErrorIs(t, err, blockfs.ErrNoSuchKey)

	err = m.Delete(ctx, "missing")
	assert.ErrorIs(t, err, blockfs.ErrNoSuchKey)
}

func TestMemory_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "k", []byte("x"), 0))
	require.NoError(t, m.Delete(ctx, "k"))

	_, err := m.Stat(ctx, "k")
	assert.ErrorIs(t, err, blockfs.ErrNoSuchKey)
}

func TestMemory_ListKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	for _, key := range []string{"meta/", "meta/a", "meta/a/b", "meta/a/b/c", "block_1"} {
		require.NoError(t, m.Put(ctx, key, []byte("x"), 0))
	}

	shallow, err := m.ListKeys(ctx, "meta/a/", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"meta/a/b"}, shallow)

	deep, err := m.ListKeys(ctx, "meta/a/", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"meta/a/b", "meta/a/b/c"}, deep)

	blocks, err := m.ListKeys(ctx, "block_", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"block_1"}, blocks)
}
