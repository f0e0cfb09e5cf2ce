package pathmut

import "context"

// QueryCache is the part of a read cache pathmut drives: invalidate every
// cached entry whose key matches. Invalidation is advisory and idempotent.
type QueryCache interface {
	InvalidateMatching(ctx context.Context, match func(key string) bool) (int, error)
}

// Options configure a Client. All fields are optional.
type Options struct {
	Cache  QueryCache // nil => writes invalidate nothing
	Logger Logger     // nil => NopLogger
	Hooks  Hooks      // nil => NopHooks
}

// Client carries the shared collaborators of every mutation built from it.
// One Client should serve one database, since keys are paths only.
type Client struct {
	cache QueryCache
	log   Logger
	hooks Hooks
}

func New(opts Options) *Client {
	return &Client{
		cache: opts.Cache,
		log:   coalesce[Logger](opts.Logger, NopLogger{}),
		hooks: coalesce[Hooks](opts.Hooks, NopHooks{}),
	}
}
