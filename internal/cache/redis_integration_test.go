//go:build integration

package cache

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// These tests exercise RedisCache against a real Redis instance at
// 127.0.0.1:6379 (SPEC_FULL.md A.5); they're excluded from the default
// `go test ./...` run by the integration build tag.

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

type fixture struct {
	Name string
	Qty  int64
}

func TestRedisCacheSetGetRoundTrip(t *testing.T) {
	client := newTestClient(t)
	c := NewRedisCache[fixture](client, "test_catalog", ":")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "A", fixture{Name: "Alpha", Qty: 1000}))

	got, ok, err := c.Get(ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fixture{Name: "Alpha", Qty: 1000}, got)

	_, ok, err = c.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCacheMGetAndClear(t *testing.T) {
	client := newTestClient(t)
	c := NewRedisCache[fixture](client, "test_catalog_bulk", ":")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "A", fixture{Name: "Alpha"}))
	require.NoError(t, c.Set(ctx, "B", fixture{Name: "Beta"}))

	got, err := c.MGet(ctx, []string{"A", "B", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Alpha", got["A"].Name)

	require.NoError(t, c.Clear(ctx))
	got, err = c.MGet(ctx, []string{"A", "B"})
	require.NoError(t, err)
	require.Empty(t, got)
}
