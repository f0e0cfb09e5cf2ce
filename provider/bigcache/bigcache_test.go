package bigcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBigCacheRoundTripAndScan(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, Config{LifeWindow: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(ctx) })

	_, ok, err := p.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	for _, k := range []string{"q:ns:/a", "q:ns:/a/b", "q:x:/a"} {
		ok, err := p.Set(ctx, k, []byte(k), 1, 0)
		require.NoError(t, err)
		require.True(t, ok)
	}
	b, ok, err := p.Get(ctx, "q:ns:/a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "q:ns:/a", string(b))

	seen := map[string]bool{}
	require.NoError(t, p.Scan(ctx, "q:ns:", func(k string) bool {
		seen[k] = true
		return true
	}))
	require.Equal(t, map[string]bool{"q:ns:/a": true, "q:ns:/a/b": true}, seen)

	require.NoError(t, p.Del(ctx, "q:ns:/a"))
	require.NoError(t, p.Del(ctx, "q:ns:/a"))
	_, ok, err = p.Get(ctx, "q:ns:/a")
	require.NoError(t, err)
	require.False(t, ok)
}
