package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	ctx := context.Background()
	c := NewVersioned(newRedis(t), "refdata", time.Minute)

	var loads int32
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		return []string{"a", "b"}, nil
	}

	key, err := c.BuildKey(ctx, "customers")
	require.NoError(t, err)
	require.Equal(t, "refdata:customers:1", key)

	var got []string
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, []string{"a", "b"}, got)
	require.EqualValues(t, 1, atomic.LoadInt32(&loads))

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "customers")
	require.NoError(t, err)
	require.Equal(t, "refdata:customers:2", key)
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.EqualValues(t, 2, atomic.LoadInt32(&loads))
}

func TestNilClientGoesToLoader(t *testing.T) {
	ctx := context.Background()
	c := NewVersioned(nil, "refdata", time.Minute)
	key, err := c.BuildKey(ctx, "statuses")
	require.NoError(t, err)
	require.Equal(t, "refdata:statuses", key)

	var got map[string]int
	require.NoError(t, c.FetchJSON(ctx, key, &got, func(context.Context) (interface{}, error) {
		return map[string]int{"x": 1}, nil
	}))
	require.Equal(t, 1, got["x"])
	require.NoError(t, c.Bump(ctx))
}

func TestSubscribeReceivesBumps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := newRedis(t)
	c := NewVersioned(client, "refdata", time.Minute)

	got := make(chan int64, 1)
	require.NoError(t, c.Subscribe(ctx, func(v int64) { got <- v }))
	_, err := c.Version(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Bump(ctx))

	select {
	case v := <-got:
		require.EqualValues(t, 2, v)
	case <-time.After(2 * time.Second):
		t.Fatal("bump not delivered")
	}
}

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = New(context.Background(), addr)
	require.Error(t, err)
}
