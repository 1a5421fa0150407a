package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/redis/redistest"
)

func TestIncrWithTTLStartsWindowOnFirstHit(t *testing.T) {
	ctx := context.Background()
	client, mem := redistest.NewClient()

	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrWithTTL(ctx, "sf:rate_limit:k", time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	require.Equal(t, time.Minute, mem.TTL("sf:rate_limit:k"))
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	client, mem := redistest.NewClient()

	for i, wantAllowed := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "login:ip:203.0.113.9", 2, time.Minute)
		require.NoError(t, err)
		require.Equal(t, wantAllowed, allowed, "hit %d", i+1)
		require.EqualValues(t, i+1, count)
	}
	value, ok := mem.Value("sf:rate_limit:login:ip:203.0.113.9")
	require.True(t, ok)
	require.Equal(t, "3", value)
}

func TestFixedWindowAllowPropagatesFailure(t *testing.T) {
	client, mem := redistest.NewClient()
	mem.SetFailing(true)

	allowed, _, err := client.FixedWindowAllow(context.Background(), "register:ip:x", 5, time.Minute)
	require.Error(t, err)
	require.False(t, allowed)
}

func TestGetMissingKeyIsNil(t *testing.T) {
	client, _ := redistest.NewClient()
	_, err := client.Get(context.Background(), "sf:cache:nothing")
	require.True(t, errors.Is(err, goredis.Nil))
}

func TestZeroClientReportsNotConnected(t *testing.T) {
	var client redis.Client
	require.Error(t, client.Ping(context.Background()))
	require.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &redis.Client{}
	cases := map[string]string{
		client.IdempotencyKey("POST:/api/v1/orders", "abc"): "sf:idempotency:POST:/api/v1/orders:abc",
		client.RateLimitKey("login:ip:1.2.3.4"):             "sf:rate_limit:login:ip:1.2.3.4",
		client.CacheKey("catalog", "product", "42"):          "sf:cache:catalog:product:42",
		client.LockKey("cron-worker:prod"):                   "sf:lock:cron-worker:prod",
		client.MarkerKey("weekly-promo", ""):                 "sf:marker:weekly-promo",
		client.AccessSessionKey("jti"):                       "sf:session:access:jti",
	}
	for got, want := range cases {
		require.Equal(t, want, got)
	}
}
