package pathmut

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/pathmut/codec"
)

// TransactionFunc maps the current value to the desired one. exists is false
// when the node is absent and current is then the zero value. Return ErrAbort
// to finish without writing; any other error fails the transaction.
//
// It must be pure: the remote retry loop may call it zero, one or many times
// per invocation, so it must not capture mutable state or have side effects.
// To delete the node, use a pointer, map or slice T and return nil.
type TransactionFunc[T any] func(current T, exists bool) (T, error)

// TransactionResult is the terminal outcome of a transaction.
type TransactionResult[T any] struct {
	// Committed is false when the update function aborted.
	Committed bool
	// Value is the committed value, or the current one when aborted.
	Value T
	// Exists is false when Value describes an absent node.
	Exists bool
}

// Transaction returns a handle that runs fn through ref's optimistic
// transaction. Retries on conflict belong to the reference. An abort is a
// success and still invalidates related reads.
func Transaction[T any](c *Client, ref Reference, fn TransactionFunc[T], opts MutationOptions[struct{}, TransactionResult[T]]) *Mutation[struct{}, TransactionResult[T]] {
	m := newMutation[struct{}, TransactionResult[T]](c, OpTransaction, ref, opts, nil)
	if m.exec != nil {
		return m
	}
	m.exec = func(ctx context.Context, _ struct{}) (TransactionResult[T], error) {
		var res TransactionResult[T]
		committed, raw, err := ref.Transaction(ctx, func(current any) (any, error) {
			cur, err := decodeValue[T](current)
			if err != nil {
				return nil, err
			}
			next, err := fn(cur, current != nil)
			if err != nil {
				return nil, err
			}
			return next, nil
		})
		if errors.Is(err, ErrAbort) {
			// raw is still the current value when the reference reports one
			committed, err = false, nil
		}
		if err != nil {
			return res, err
		}
		if !committed {
			m.client.hooks.TransactionAborted(m.key)
			m.client.log.Debug("transaction aborted", Fields{"key": m.key.String()})
		}
		val, err := decodeValue[T](raw)
		if err != nil {
			return res, err
		}
		return TransactionResult[T]{Committed: committed, Value: val, Exists: raw != nil}, nil
	}
	return m
}

// decodeValue converts a JSON-shaped tree value into T.
func decodeValue[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	return codec.Convert[any, T](v, codec.JSON[any]{}, codec.JSON[T]{})
}
