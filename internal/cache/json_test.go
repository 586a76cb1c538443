package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/manigandan-posana/vebops/internal/cache"
)

type profile struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

func TestJSONRoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := cache.NewJSON(client, time.Minute)
	ctx := context.Background()
	key := cache.KeyCompanyProfile("acme")
	require.Equal(t, "tenant:acme:company:profile", key)

	var got profile
	hit, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, c.Set(ctx, key, profile{Name: "Acme", State: "Kerala"}))
	hit, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "Kerala", got.State)

	mr.FastForward(2 * time.Minute)
	hit, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestNilCacheIsAlwaysMissing(t *testing.T) {
	var c *cache.JSON
	hit, err := c.Get(context.Background(), "k", &profile{})
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, c.Set(context.Background(), "k", profile{}))
}
