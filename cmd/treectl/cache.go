package main

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/pathmut"
	"github.com/unkn0wn-root/pathmut/codec"
	"github.com/unkn0wn-root/pathmut/genstore"
	pr "github.com/unkn0wn-root/pathmut/provider"
	bcprov "github.com/unkn0wn-root/pathmut/provider/bigcache"
	rdprov "github.com/unkn0wn-root/pathmut/provider/redis"
	riprov "github.com/unkn0wn-root/pathmut/provider/ristretto"
	"github.com/unkn0wn-root/pathmut/querycache"
)

type cacheConfig struct {
	Kind      string
	Codec     string
	Namespace string
	RedisAddr string
	Logger    pathmut.Logger
	Hooks     pathmut.Hooks
}

// newCache returns nil for kind "none".
func newCache(ctx context.Context, cfg cacheConfig) (querycache.Cache[any], error) {
	cd, err := treeCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	opts := querycache.Options[any]{
		Namespace: cfg.Namespace,
		Codec:     codec.Limit[any]{Inner: cd, MaxDecode: 8 << 20},
		Logger:    cfg.Logger,
		Hooks:     cfg.Hooks,
	}

	var p pr.Provider
	switch cfg.Kind {
	case "", "none":
		return nil, nil
	case "ristretto":
		p, err = riprov.New(riprov.Config{NumCounters: 100_000, MaxCost: 64 << 20})
		opts.ComputeSetCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	case "bigcache":
		p, err = bcprov.New(ctx, bcprov.Config{LifeWindow: 10 * time.Minute})
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		p, err = rdprov.New(rdprov.Config{Client: rdb, CloseClient: true})
		if err == nil {
			// invalidations must reach the next invocation
			opts.GenStore, err = genstore.NewRedisGenStore(genstore.RedisConfig{
				Client:    rdb,
				Namespace: cfg.Namespace,
				TTL:       24 * time.Hour,
			})
		}
	default:
		return nil, fmt.Errorf("invalid cache %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	opts.Provider = p
	return querycache.New[any](opts)
}

func treeCodec(name string) (codec.Codec[any], error) {
	switch name {
	case "", "json":
		return codec.JSON[any]{}, nil
	case "cbor":
		return codec.NewCBOR[any](true)
	case "msgpack":
		return codec.Msgpack[any]{}, nil
	case "proto":
		return codec.TreeProto{}, nil
	default:
		return nil, fmt.Errorf("invalid codec %q", name)
	}
}
