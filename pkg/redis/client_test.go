package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeCmdable struct {
	data        map[string]string
	counters    map[string]int64
	expireCalls int
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{data: map[string]string{}, counters: map[string]int64{}}
}

func (f *fakeCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	value, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := f.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeCmdable) Expire(context.Context, string, time.Duration) *redis.BoolCmd {
	f.expireCalls++
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			removed++
		}
		delete(f.counters, key)
	}
	return redis.NewIntResult(removed, nil)
}

func TestIncrWithTTLStartsWindowOnce(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCmdable()
	client := &Client{store: fake}

	count, err := client.IncrWithTTL(ctx, "rl:ip:login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, 1, fake.expireCalls)

	count, err = client.IncrWithTTL(ctx, "rl:ip:login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	// Expire is only set when the counter is created.
	require.Equal(t, 1, fake.expireCalls)
}

func TestCouponCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newFakeCmdable()}

	key := client.CouponCacheKey("diwali20")
	require.NoError(t, client.Set(ctx, key, `{"code":"DIWALI20"}`, time.Minute))

	value, err := client.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, `{"code":"DIWALI20"}`, value)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	require.ErrorIs(t, err, redis.Nil)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	require.Equal(t, "vastra:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	require.Equal(t, "vastra:coupon:DIWALI20", client.CouponCacheKey(" diwali20 "))
}

func TestUninitializedClientFails(t *testing.T) {
	client := &Client{}
	_, err := client.Get(context.Background(), "any")
	require.ErrorIs(t, err, errNotInitialized)
	require.NoError(t, client.Close())
}
