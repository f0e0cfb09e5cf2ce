package querycache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/unkn0wn-root/pathmut"
	c "github.com/unkn0wn-root/pathmut/codec"
	gen "github.com/unkn0wn-root/pathmut/genstore"
	"github.com/unkn0wn-root/pathmut/internal/wire"
	pr "github.com/unkn0wn-root/pathmut/provider"
)

const (
	defaultTTL          = 10 * time.Minute
	defaultGenRetention = 30 * 24 * time.Hour
	defaultSweep        = time.Hour
)

type cache[V any] struct {
	ns       string
	prefix   string
	provider pr.Provider
	codec    c.Codec[V]
	log      pathmut.Logger
	hooks    pathmut.Hooks
	enabled  bool

	defaultTTL     time.Duration
	maxAge         time.Duration
	computeSetCost SetCostFunc
	gen            gen.GenStore

	// user keys this process has stored; entries may have expired since
	index *xsync.MapOf[string, struct{}]
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Provider == nil {
		return nil, ErrNoProvider
	}
	if opts.Codec == nil {
		return nil, ErrNoCodec
	}
	if opts.Namespace == "" {
		return nil, ErrNoNamespace
	}

	qc := &cache[V]{
		ns:       opts.Namespace,
		prefix:   "q:" + opts.Namespace + ":",
		provider: opts.Provider,
		codec:    opts.Codec,
		enabled:  !opts.Disabled,
		maxAge:   opts.MaxAge,
		index:    xsync.NewMapOf[string, struct{}](),
	}

	qc.log = coalesce[pathmut.Logger](opts.Logger, pathmut.NopLogger{})
	qc.hooks = coalesce[pathmut.Hooks](opts.Hooks, pathmut.NopHooks{})
	qc.defaultTTL = coalesce(opts.DefaultTTL, defaultTTL)

	if opts.ComputeSetCost != nil {
		qc.computeSetCost = opts.ComputeSetCost
	} else {
		qc.computeSetCost = func(string, []byte) int64 { return 1 }
	}

	if opts.GenStore != nil {
		qc.gen = opts.GenStore
	} else {
		qc.gen = gen.NewLocalGenStore(
			coalesce(opts.CleanupInterval, defaultSweep),
			coalesce(opts.GenRetention, defaultGenRetention),
		)
	}
	return qc, nil
}

func (qc *cache[V]) Enabled() bool { return qc.enabled }

func (qc *cache[V]) Close(ctx context.Context) error {
	// gen store first (best effort)
	if qc.gen != nil {
		_ = qc.gen.Close(ctx)
	}
	return qc.provider.Close(ctx)
}

func (qc *cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if !qc.enabled {
		return zero, false, nil
	}
	sk := qc.storageKey(key)
	raw, ok, err := qc.provider.Get(ctx, sk)
	if err != nil || !ok {
		return zero, false, err
	}
	e, err := wire.Decode(raw)
	if err != nil {
		qc.heal(ctx, key, "corrupt")
		return zero, false, nil
	}
	if e.Gen != qc.snapshotGen(ctx, sk) {
		qc.heal(ctx, key, "gen_mismatch")
		return zero, false, nil
	}
	if qc.maxAge > 0 && !e.StoredAt.IsZero() && time.Since(e.StoredAt) > qc.maxAge {
		return zero, false, nil
	}
	v, err := qc.codec.Decode(e.Payload)
	if err != nil {
		qc.heal(ctx, key, "value_decode")
		return zero, false, nil
	}
	return v, true, nil
}

func (qc *cache[V]) SetWithGen(ctx context.Context, key string, value V, observedGen uint64, ttl time.Duration) error {
	if !qc.enabled {
		return nil
	}
	if ttl == 0 {
		ttl = qc.defaultTTL
	}
	sk := qc.storageKey(key)
	if qc.snapshotGen(ctx, sk) != observedGen {
		// generation moved; skip stale write
		qc.log.Debug("SetWithGen skipped (gen mismatch)", pathmut.Fields{"key": key, "obs": observedGen})
		return nil
	}
	payload, err := qc.codec.Encode(value)
	if err != nil {
		return err
	}
	raw := wire.Encode(wire.Entry{Gen: observedGen, StoredAt: time.Now(), Payload: payload})
	ok, err := qc.provider.Set(ctx, sk, raw, qc.computeSetCost(sk, raw), ttl)
	if err != nil {
		return err
	}
	if !ok {
		qc.hooks.ProviderSetRejected(sk)
		qc.log.Debug("SetWithGen rejected by provider (pressure)", pathmut.Fields{"key": key})
		return nil
	}
	qc.index.Store(key, struct{}{})
	return nil
}

func (qc *cache[V]) SnapshotGen(key string) uint64 {
	return qc.snapshotGen(context.Background(), qc.storageKey(key))
}

func (qc *cache[V]) Fetch(ctx context.Context, key string, load LoadFunc[V]) (V, error) {
	if v, ok, err := qc.Get(ctx, key); err == nil && ok {
		return v, nil
	} else if err != nil {
		qc.log.Warn("cache read failed; loading from source", pathmut.Fields{"key": key, "err": err})
	}

	obs := qc.SnapshotGen(key) // before the source read
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := qc.SetWithGen(ctx, key, v, obs, 0); err != nil {
		qc.log.Warn("cache store failed", pathmut.Fields{"key": key, "err": err})
	}
	return v, nil
}

func (qc *cache[V]) Invalidate(ctx context.Context, key string) error {
	if !qc.enabled {
		return nil
	}
	_, err := qc.invalidate(ctx, []string{key})
	return err
}

func (qc *cache[V]) InvalidateMatching(ctx context.Context, match func(key string) bool) (int, error) {
	if !qc.enabled {
		return 0, nil
	}
	seen := make(map[string]struct{})
	var keys []string
	add := func(k string) {
		if _, dup := seen[k]; dup || !match(k) {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	qc.index.Range(func(k string, _ struct{}) bool {
		add(k)
		return true
	})

	var scanErr error
	if sc, ok := qc.provider.(pr.Scanner); ok {
		scanErr = sc.Scan(ctx, qc.prefix, func(sk string) bool {
			add(strings.TrimPrefix(sk, qc.prefix))
			return true
		})
		if scanErr != nil {
			qc.log.Warn("provider scan failed; invalidating indexed keys only", pathmut.Fields{"err": scanErr})
		}
	}
	if len(keys) == 0 {
		return 0, scanErr
	}
	n, err := qc.invalidate(ctx, keys)
	return n, errors.Join(err, scanErr)
}

// invalidate bumps the generations of keys in one batch, then deletes
// their entries. It returns how many keys were fully invalidated.
func (qc *cache[V]) invalidate(ctx context.Context, keys []string) (int, error) {
	sks := make([]string, len(keys))
	for i, k := range keys {
		sks[i] = qc.storageKey(k)
	}
	bumped, bumpErr := qc.gen.BumpMany(ctx, sks)

	var errs []error
	n := 0
	for i, k := range keys {
		var kBump error
		if _, ok := bumped[sks[i]]; !ok {
			kBump = bumpErr
			if kBump == nil {
				kBump = errors.New("generation not bumped")
			}
			qc.hooks.GenBumpError(sks[i], kBump)
		}
		delErr := qc.provider.Del(ctx, sks[i])
		if kBump == nil {
			qc.index.Delete(k)
		}
		if kBump != nil || delErr != nil {
			if kBump != nil && delErr != nil {
				qc.hooks.InvalidateOutage(k, kBump, delErr)
			}
			errs = append(errs, &InvalidateError{Key: k, BumpErr: kBump, DelErr: delErr})
			continue
		}
		n++
	}
	qc.log.Debug("invalidated keys", pathmut.Fields{"ns": qc.ns, "requested": len(keys), "invalidated": n})
	return n, errors.Join(errs...)
}

func (qc *cache[V]) Keys() []string {
	out := make([]string, 0, qc.index.Size())
	qc.index.Range(func(k string, _ struct{}) bool {
		out = append(out, k)
		return true
	})
	sort.Strings(out)
	return out
}

func (qc *cache[V]) heal(ctx context.Context, key, reason string) {
	sk := qc.storageKey(key)
	_ = qc.provider.Del(ctx, sk)
	qc.index.Delete(key)
	qc.hooks.SelfHeal(sk, reason)
}

func (qc *cache[V]) snapshotGen(ctx context.Context, storageKey string) uint64 {
	g, err := qc.gen.Snapshot(ctx, storageKey)
	if err != nil {
		// Conservative: treat as 0 so CAS writes will skip; reads will self-heal
		qc.log.Warn("gen snapshot error", pathmut.Fields{"key": storageKey, "err": err})
		return 0
	}
	return g
}

func (qc *cache[V]) storageKey(userKey string) string {
	// isolate by namespace
	return qc.prefix + userKey
}
