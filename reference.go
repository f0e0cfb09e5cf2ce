package pathmut

import "context"

// Reference is the write surface of a node in the remote tree. pathmut only
// reads its path and calls these methods; it never retries them.
type Reference interface {
	// Path returns the absolute path of the node.
	Path() string

	Set(ctx context.Context, value any) error

	// SetWithPriority sets the value and the node's ordering priority in one write.
	SetWithPriority(ctx context.Context, value, priority any) error

	// Update applies every entry (keys relative to the node, possibly nested
	// like "bar/baz") as one atomic multi-location write.
	Update(ctx context.Context, values map[string]any) error

	// Remove deletes the node and its subtree. Absent nodes are not an error.
	Remove(ctx context.Context) error

	// Transaction runs the optimistic read-apply-write loop. update receives
	// the current value (nil when absent) and may run many times; returning
	// ErrAbort ends it without a write. value is the committed value, or the
	// current value when aborted.
	Transaction(ctx context.Context, update func(current any) (any, error)) (committed bool, value any, err error)
}
