// Package querycache stores cached reads of tree paths and invalidates them
// by predicate, which is what pathmut drives after every successful write.
//
// Safety comes from per-key generations: an entry is only served while the
// generation it was stored under is current, and every invalidation bumps it.
//
// Keys:
//
//	q:<ns>:<key>   - one cached read; <key> is normally a pathmut.PathKey
//
// Read-through with CAS:
//
//	v, err := cache.Fetch(ctx, "/users/ada", func(ctx context.Context) (V, error) {
//	    return readFromDB(ctx, "/users/ada")
//	})
package querycache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/pathmut"
	c "github.com/unkn0wn-root/pathmut/codec"
	gen "github.com/unkn0wn-root/pathmut/genstore"
	pr "github.com/unkn0wn-root/pathmut/provider"
)

type SetCostFunc func(key string, raw []byte) int64

// LoadFunc reads the value behind a key from the source of truth.
type LoadFunc[V any] func(ctx context.Context) (V, error)

// Cache is the provider-agnostic query cache. V is the cached value type.
type Cache[V any] interface {
	Enabled() bool
	Close(context.Context) error

	Get(ctx context.Context, key string) (v V, ok bool, err error)
	SetWithGen(ctx context.Context, key string, value V, observedGen uint64, ttl time.Duration) error
	SnapshotGen(key string) uint64

	// Fetch serves key from the cache or loads and stores it (CAS-protected).
	Fetch(ctx context.Context, key string, load LoadFunc[V]) (V, error)

	Invalidate(ctx context.Context, key string) error
	// InvalidateMatching invalidates every known key for which match is true
	// and returns how many matched.
	InvalidateMatching(ctx context.Context, match func(key string) bool) (int, error)

	// Keys lists the keys this process knows to be cached, sorted.
	Keys() []string
}

var _ pathmut.QueryCache = Cache[any](nil)

// Options tune the cache. Only Namespace, Provider and Codec are required.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace, e.g. "app:prod:tree"
	Provider  pr.Provider
	Codec     c.Codec[V]

	Logger          pathmut.Logger // nil => NopLogger
	Hooks           pathmut.Hooks  // nil => NopHooks
	DefaultTTL      time.Duration  // 0 => 10m
	MaxAge          time.Duration  // entries older than this are misses; 0 => no limit
	CleanupInterval time.Duration  // local gen cleanup; 0 => 1h
	GenRetention    time.Duration  // 0 => 30d
	Disabled        bool
	ComputeSetCost  SetCostFunc  // default 1
	GenStore        gen.GenStore // nil => LocalGenStore (in-process)
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
