// Package pathmut binds writes against a path-addressed tree database to
// reusable mutation handles with an observable lifecycle
// (idle -> pending -> success | error), and keeps cached reads of related
// paths fresh by invalidating them after every successful write.
//
// Components:
//   - Reference: the remote write surface (set, update, remove, transaction).
//   - PathKey: canonical path of a reference; identity key and invalidation scope.
//   - Mutation[A, R]: the shared lifecycle; Set, Update, Remove and Transaction
//     are thin configurations of it.
//   - QueryCache: anything that can invalidate cached reads by key predicate
//     (see package querycache).
//
// Invalidation scope for a write at /a/b:
//
//	/a      ancestor    invalidated
//	/a/b    exact       invalidated
//	/a/b/c  descendant  invalidated
//	/x/y    unrelated   kept
//
// Usage:
//
//	client := pathmut.New(pathmut.Options{Cache: qc, Logger: logger})
//	set := pathmut.Set[int](client, db.Ref("scores/ada"), pathmut.SetOptions[int]{Priority: 10})
//	if _, err := set.MutateAsync(ctx, 1337); err != nil { ... }
//	set.Mutate(ctx, 1338) // fire-and-forget; observe set.State()
package pathmut
