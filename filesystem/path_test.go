package filesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		workingDir string
		in         string
		want       string
	}{
		{"absolute unchanged", "/", "/a/b", "/a/b"},
		{"relative joined", "/work", "notes.txt", "/work/notes.txt"},
		{"trailing slash stripped", "/", "/a/b/", "/a/b"},
		{"dot segments collapsed", "/", "/a/./b/../c", "/a/c"},
		{"double slashes collapsed", "/", "//a//b", "/a/b"},
		{"bare dot is working dir", "/work", ".", "/work"},
		{"root stays root", "/", "/", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, normalize(tt.workingDir, tt.in))
		})
	}
}

func TestParent(t *testing.T) {
	t.Parallel()

	p, ok := parent("/a/b")
	assert.True(t, ok)
	assert.Equal(t, "/a", p)

	p, ok = parent("/a")
	assert.True(t, ok)
	assert.Equal(t, "/", p)

	_, ok = parent("/")
	assert.False(t, ok)
}

func TestAncestorChain(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"/", "/a", "/a/b", "/a/b/c"}, ancestorChain("/a/b/c"))
	assert.Equal(t, []string{"/"}, ancestorChain("/"))
}

func TestIsStrictDescendant(t *testing.T) {
	t.Parallel()

	assert.True(t, isStrictDescendant("/a", "/a/b"))
	assert.True(t, isStrictDescendant("/a", "/a/b/c"))
	assert.True(t, isStrictDescendant("/", "/a"))
	assert.False(t, isStrictDescendant("/a", "/a"))
	assert.False(t, isStrictDescendant("/", "/"))
	// Sibling with a shared name prefix is not a descendant
	assert.False(t, isStrictDescendant("/a", "/ab"))
	assert.False(t, isStrictDescendant("/a/b", "/a"))
}

func TestRebase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/x", rebase("/a", "/a", "/x"))
	assert.Equal(t, "/x/b/c", rebase("/a/b/c", "/a", "/x"))
	assert.Equal(t, "/x/y/deep", rebase("/a/deep", "/a", "/x/y"))
}
