package pathmut

import "context"

// UpdatePatch maps paths relative to the target (possibly nested, like
// "bar/baz") to new values. It is sent to the reference unchanged.
type UpdatePatch map[string]any

// Set returns a handle that writes its argument to ref. When opts.Priority
// is set, value and priority are written in the same call.
func Set[T any](c *Client, ref Reference, opts SetOptions[T]) *Mutation[T, T] {
	priority := opts.Priority
	return newMutation(c, OpSet, ref, opts.MutationOptions, func(ctx context.Context, value T) (T, error) {
		var err error
		if priority != nil {
			err = ref.SetWithPriority(ctx, value, priority)
		} else {
			err = ref.Set(ctx, value)
		}
		if err != nil {
			var zero T
			return zero, err
		}
		return value, nil
	})
}

// Update returns a handle that applies its patch to ref as one multi-path
// write. Atomicity is whatever the reference provides.
func Update(c *Client, ref Reference, opts MutationOptions[UpdatePatch, UpdatePatch]) *Mutation[UpdatePatch, UpdatePatch] {
	return newMutation(c, OpUpdate, ref, opts, func(ctx context.Context, patch UpdatePatch) (UpdatePatch, error) {
		if err := ref.Update(ctx, patch); err != nil {
			return nil, err
		}
		return patch, nil
	})
}

// Remove returns a handle that deletes ref and its subtree.
func Remove(c *Client, ref Reference, opts MutationOptions[struct{}, struct{}]) *Mutation[struct{}, struct{}] {
	return newMutation(c, OpRemove, ref, opts, func(ctx context.Context, _ struct{}) (struct{}, error) {
		return struct{}{}, ref.Remove(ctx)
	})
}
