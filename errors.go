package pathmut

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/pathmut/tree"
)

var (
	// ErrAbort is returned by a TransactionFunc to finish without writing.
	// The mutation still reports success.
	ErrAbort = tree.ErrAbort

	ErrNilReference = errors.New("pathmut: nil reference")
	ErrNilClient    = errors.New("pathmut: nil client")
)

// InvalidationError reports a failed cache invalidation after a write.
// It is only ever delivered to hooks and logs, never to the mutation.
type InvalidationError struct {
	Key PathKey
	Err error
}

func (e *InvalidationError) Error() string {
	return fmt.Sprintf("pathmut: invalidate related to %s: %v", e.Key, e.Err)
}

func (e *InvalidationError) Unwrap() error { return e.Err }

// PanicError is captured when a mutation's executor panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("pathmut: mutation panicked: %v", e.Value)
}
