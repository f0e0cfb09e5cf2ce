package tree

import "errors"

var (
	// ErrInvalidPath is returned for paths or keys containing forbidden characters.
	ErrInvalidPath = errors.New("tree: invalid path")

	// ErrAbort is returned by a transaction update function to end the
	// transaction without writing. It is not a failure.
	ErrAbort = errors.New("tree: transaction aborted")
)
