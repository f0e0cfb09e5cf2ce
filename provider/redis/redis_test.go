package redis

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	p, err := New(Config{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), CloseClient: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p, mr
}

func TestRedisGetSetDel(t *testing.T) {
	ctx := context.Background()
	p, mr := newProvider(t)

	_, ok, err := p.Get(ctx, "q:ns:/a")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = p.Set(ctx, "q:ns:/a", []byte{1, 2, 3}, 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Minute, mr.TTL("q:ns:/a"))

	b, ok, err := p.Get(ctx, "q:ns:/a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, b)

	require.NoError(t, p.Del(ctx, "q:ns:/a"))
	require.NoError(t, p.Del(ctx, "q:ns:/a"), "deleting a missing key is fine")
}

func TestRedisScanMatchesPrefixOnly(t *testing.T) {
	ctx := context.Background()
	p, _ := newProvider(t)
	for _, k := range []string{"q:ns:/a", "q:ns:/a/b", "q:other:/a", "gen:ns:q:ns:/a"} {
		_, err := p.Set(ctx, k, []byte("x"), 1, 0)
		require.NoError(t, err)
	}

	var got []string
	require.NoError(t, p.Scan(ctx, "q:ns:", func(k string) bool {
		got = append(got, k)
		return true
	}))
	sort.Strings(got)
	require.Equal(t, []string{"q:ns:/a", "q:ns:/a/b"}, got)
}

func TestEscapeGlob(t *testing.T) {
	require.Equal(t, `q:n\*s\?:\[x\]`, escapeGlob("q:n*s?:[x]"))
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrNilClient)
}
