package pathmut

import (
	"strings"

	"github.com/unkn0wn-root/pathmut/tree"
)

// PathKey is the canonical absolute path of a reference ("/a/b", root "/").
// It identifies a mutation and scopes its invalidation. Equal paths yield
// equal keys; ancestry reduces to a prefix check on segment boundaries.
type PathKey string

const RootKey PathKey = "/"

// KeyOf derives the key of ref.
func KeyOf(ref Reference) PathKey { return MakeKey(ref.Path()) }

// MakeKey derives the key of a path in any accepted spelling.
func MakeKey(path string) PathKey { return PathKey(tree.Clean(path)) }

// ParseKey accepts only keys already in canonical form.
func ParseKey(s string) (PathKey, bool) {
	if s == "" || s[0] != '/' || tree.Clean(s) != s {
		return "", false
	}
	return PathKey(s), true
}

func (k PathKey) String() string { return string(k) }

func (k PathKey) Segments() []string { return tree.Split(string(k)) }

// Contains reports whether k is other or one of its ancestors.
func (k PathKey) Contains(other PathKey) bool {
	if k == RootKey || k == other {
		return true
	}
	return strings.HasPrefix(string(other), string(k)+"/")
}

// Related reports whether k and other are equal or one contains the other.
func (k PathKey) Related(other PathKey) bool {
	return k.Contains(other) || other.Contains(k)
}
