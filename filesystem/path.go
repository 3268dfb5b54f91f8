package filesystem

import (
	gopath "path"
	"strings"
)

// Paths are absolute, slash-separated, and normalized; the normalized
// string form is the metadata store's primary key, so two paths are equal
// iff their normalized forms match.

// normalize cleans p into canonical absolute form, qualifying relative
// paths against the working directory.
func normalize(workingDir, p string) string {
	if !gopath.IsAbs(p) {
		p = gopath.Join(workingDir, p)
	}
	return gopath.Clean(p)
}

// joinChild appends one child component to dir.
func joinChild(dir, name string) string {
	return gopath.Join(dir, name)
}

// parent returns the parent path and false when p is the root.
func parent(p string) (string, bool) {
	if p == "/" {
		return "", false
	}
	return gopath.Dir(p), true
}

// base returns the last path component.
func base(p string) string {
	return gopath.Base(p)
}

// ancestorChain returns p and every ancestor up to and including the root,
// ordered root-first.
func ancestorChain(p string) []string {
	var chain []string
	for {
		chain = append([]string{p}, chain...)
		up, ok := parent(p)
		if !ok {
			return chain
		}
		p = up
	}
}

// isStrictDescendant reports whether p lives somewhere under dir.
func isStrictDescendant(dir, p string) bool {
	if dir == "/" {
		return p != "/"
	}
	return strings.HasPrefix(p, dir+"/")
}

// rebase replaces the src prefix of p with dst. p must be src itself or a
// strict descendant of src.
func rebase(p, src, dst string) string {
	if p == src {
		return dst
	}
	return dst + strings.TrimPrefix(p, src)
}
