package memdb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/unkn0wn-root/pathmut"
	"github.com/unkn0wn-root/pathmut/tree"
)

var _ pathmut.Reference = (*Ref)(nil)

// Ref addresses one node of a DB.
type Ref struct {
	db   *DB
	path string
}

func (r *Ref) Path() string { return r.path }

// Key is the last path segment, "" for the root.
func (r *Ref) Key() string { return tree.Base(r.path) }

// Child returns a reference to rel below r; rel may contain slashes.
func (r *Ref) Child(rel string) *Ref {
	return &Ref{db: r.db, path: tree.Join(r.path, rel)}
}

// Parent returns nil for the root.
func (r *Ref) Parent() *Ref {
	p, ok := tree.Parent(r.path)
	if !ok {
		return nil
	}
	return &Ref{db: r.db, path: p}
}

func (r *Ref) Get(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{path: r.path, node: r.db.lookup(r.path)}, nil
}

// Set replaces the node and its priority.
func (r *Ref) Set(ctx context.Context, value any) error {
	return r.set(ctx, value, nil)
}

// SetWithPriority replaces the node and sets its priority in one write.
func (r *Ref) SetWithPriority(ctx context.Context, value, priority any) error {
	return r.set(ctx, value, priority)
}

func (r *Ref) set(ctx context.Context, value, priority any) error {
	if err := r.db.check(ctx, OpSet, r.path); err != nil {
		return err
	}
	n, err := tree.Normalize(value)
	if err != nil {
		return &Error{Op: OpSet, Path: r.path, Err: err}
	}
	p, err := tree.NormalizePriority(priority)
	if err != nil {
		return &Error{Op: OpSet, Path: r.path, Err: err}
	}
	r.db.replace(r.path, tree.WithPriority(n, p))
	r.db.log.Debug("memdb set", pathmut.Fields{"path": r.path})
	return nil
}

// Update writes every entry of values (keys relative to r, possibly nested)
// in one atomic step. Nothing is written when any entry is invalid.
func (r *Ref) Update(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	type write struct {
		path string
		node any
	}
	writes := make([]write, 0, len(values))
	for rel, v := range values {
		if len(tree.Split(rel)) == 0 {
			return &Error{Op: OpUpdate, Path: r.path, Err: fmt.Errorf("%w: empty update key", tree.ErrInvalidPath)}
		}
		p := tree.Join(r.path, rel)
		if err := r.db.check(ctx, OpUpdate, p); err != nil {
			return err
		}
		n, err := tree.Normalize(v)
		if err != nil {
			return &Error{Op: OpUpdate, Path: p, Err: err}
		}
		writes = append(writes, write{path: p, node: n})
	}
	sort.Slice(writes, func(i, j int) bool { return writes[i].path < writes[j].path })
	for i := 1; i < len(writes); i++ {
		if tree.Overlaps(writes[i-1].path, writes[i].path) {
			return &Error{Op: OpUpdate, Path: r.path, Err: fmt.Errorf("%w: %s and %s", ErrOverlappingPaths, writes[i-1].path, writes[i].path)}
		}
	}

	r.db.mu.Lock()
	root := r.db.root
	for _, w := range writes {
		root = tree.Replace(root, tree.Split(w.path), w.node)
	}
	r.db.root = root
	r.db.mu.Unlock()

	r.db.log.Debug("memdb update", pathmut.Fields{"path": r.path, "keys": len(writes)})
	return nil
}

// Remove deletes the node and its subtree. Removing an absent node is a no-op.
func (r *Ref) Remove(ctx context.Context) error {
	if err := r.db.check(ctx, OpRemove, r.path); err != nil {
		return err
	}
	r.db.replace(r.path, nil)
	r.db.log.Debug("memdb remove", pathmut.Fields{"path": r.path})
	return nil
}

// Transaction runs update against the current value (nil when absent) and
// commits the result only if the node has not changed since it was read.
// On conflict the whole read-apply-write sequence is retried. update must
// be pure: it may run any number of times.
//
// Returning tree.ErrAbort ends the transaction without a write; committed
// is false and value is the current value. Any other error is returned.
func (r *Ref) Transaction(ctx context.Context, update func(current any) (any, error)) (bool, any, error) {
	if err := r.db.check(ctx, OpTransaction, r.path); err != nil {
		return false, nil, err
	}
	segs := tree.Split(r.path)
	for attempt := 0; attempt < r.db.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, nil, err
		}
		cur := r.db.lookup(r.path)

		next, err := update(tree.Strip(cur))
		if errors.Is(err, tree.ErrAbort) {
			return false, tree.Strip(cur), nil
		}
		if err != nil {
			return false, nil, err
		}
		n, err := tree.Normalize(next)
		if err != nil {
			return false, nil, &Error{Op: OpTransaction, Path: r.path, Err: err}
		}
		if tree.PriorityOf(n) == nil {
			n = tree.WithPriority(n, tree.PriorityOf(cur))
		}

		r.db.mu.Lock()
		if !tree.Equal(tree.Lookup(r.db.root, segs), cur) {
			r.db.mu.Unlock()
			r.db.log.Debug("memdb transaction conflict, retrying", pathmut.Fields{"path": r.path, "attempt": attempt + 1})
			continue
		}
		r.db.root = tree.Replace(r.db.root, segs, n)
		r.db.mu.Unlock()
		return true, tree.Strip(n), nil
	}
	r.db.log.Warn("memdb transaction gave up", pathmut.Fields{"path": r.path, "attempts": r.db.maxRetries})
	return false, nil, &Error{Op: OpTransaction, Path: r.path, Err: ErrMaxRetries}
}

// Push writes value under a new, time-ordered child key and returns its reference.
func (r *Ref) Push(ctx context.Context, value any) (*Ref, error) {
	child := r.Child(r.db.newID())
	if err := child.Set(ctx, value); err != nil {
		return nil, err
	}
	return child, nil
}
