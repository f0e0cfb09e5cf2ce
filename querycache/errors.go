package querycache

import (
	"errors"
	"fmt"
)

var (
	ErrNoProvider  = errors.New("querycache: provider is required")
	ErrNoCodec     = errors.New("querycache: codec is required")
	ErrNoNamespace = errors.New("querycache: namespace is required")
)

// InvalidateError reports a key whose invalidation did not fully happen.
// With only DelErr set the entry may linger but is already unreadable
// (its generation moved). With BumpErr set a concurrent Fetch holding the
// old generation could still repopulate it.
type InvalidateError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("invalidate %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Key)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
