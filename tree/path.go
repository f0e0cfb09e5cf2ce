package tree

import (
	"fmt"
	"strings"
)

const (
	// PriorityKey and ValueKey are the reserved keys of the priority export format.
	PriorityKey = ".priority"
	ValueKey    = ".value"
)

// Clean returns the canonical absolute form of p.
func Clean(p string) string {
	segs := Split(p)
	if len(segs) == 0 {
		return "/"
	}
	return "/" + strings.Join(segs, "/")
}

// Split returns the non-empty segments of p. The root has no segments.
func Split(p string) []string {
	if p == "" || p == "/" {
		return nil
	}
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Join resolves rel against base. rel may itself contain slashes.
func Join(base, rel string) string {
	return Clean(base + "/" + rel)
}

// Parent returns the parent of p; ok is false for the root.
func Parent(p string) (parent string, ok bool) {
	segs := Split(p)
	if len(segs) == 0 {
		return "/", false
	}
	return Clean(strings.Join(segs[:len(segs)-1], "/")), true
}

// Base returns the last segment of p, or "" for the root.
func Base(p string) string {
	segs := Split(p)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// ValidateKey reports whether k may be used as a single path segment.
func ValidateKey(k string) error {
	if k == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidPath)
	}
	if len(k) > 768 {
		return fmt.Errorf("%w: key longer than 768 bytes", ErrInvalidPath)
	}
	for _, r := range k {
		switch {
		case r < 0x20 || r == 0x7f:
			return fmt.Errorf("%w: control character in %q", ErrInvalidPath, k)
		case strings.ContainsRune(".#$[]/", r):
			return fmt.Errorf("%w: %q contains %q", ErrInvalidPath, k, r)
		}
	}
	return nil
}

// ValidatePath validates every segment of p.
func ValidatePath(p string) error {
	for _, s := range Split(p) {
		if err := ValidateKey(s); err != nil {
			return err
		}
	}
	return nil
}

// Overlaps reports whether a and b are equal or one is an ancestor of the other.
func Overlaps(a, b string) bool {
	a, b = Clean(a), Clean(b)
	return Contains(a, b) || Contains(b, a)
}

// Contains reports whether anc is p or an ancestor of p. Both must be clean.
func Contains(anc, p string) bool {
	if anc == "/" || anc == p {
		return true
	}
	return strings.HasPrefix(p, anc+"/")
}
