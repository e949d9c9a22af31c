package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"luvrix-giveaway-engine/internal/platform/redis"
)

type totals struct {
	Total int64 `json:"total"`
	Count int64 `json:"count"`
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *CacheService) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, NewCacheService(rdb, "test:")
}

func TestCacheService_RawAndDelete(t *testing.T) {
	ctx := context.Background()
	mr, c := newRedis(t)

	_, err := c.GetRaw(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.SetRaw(ctx, "k", []byte(`{"total":10,"count":2}`), time.Minute))
	assert.True(t, mr.Exists("test:k"))

	data, err := c.GetRaw(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":10,"count":2}`, string(data))

	require.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, mr.Exists("test:k"))
	require.NoError(t, c.Delete(ctx))
}

func TestLayered_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	_, l2 := newRedis(t)
	c, err := NewLayered(l2, LayeredConfig{TTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	var source atomic.Int64
	source.Store(10)
	load := func(context.Context) (interface{}, error) {
		return totals{Total: source.Load(), Count: 1}, nil
	}

	var out totals
	require.NoError(t, c.GetOrLoad(ctx, "agg", &out, load))
	assert.Equal(t, int64(10), out.Total)

	source.Store(20)
	require.NoError(t, c.GetOrLoad(ctx, "agg", &out, load))
	assert.Equal(t, int64(10), out.Total, "served from cache")

	c.Invalidate(ctx, "agg")
	require.NoError(t, c.GetOrLoad(ctx, "agg", &out, load))
	assert.Equal(t, int64(20), out.Total)

	_, _, loads := c.Stats()
	assert.Equal(t, uint64(2), loads)
}

func TestLayered_FallsBackToL2(t *testing.T) {
	ctx := context.Background()
	_, l2 := newRedis(t)
	require.NoError(t, l2.SetRaw(ctx, "agg", []byte(`{"total":7}`), time.Minute))

	c, err := NewLayered(l2, LayeredConfig{}, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	var out totals
	require.NoError(t, c.GetOrLoad(ctx, "agg", &out, func(context.Context) (interface{}, error) {
		return nil, errors.New("must not load")
	}))
	assert.Equal(t, int64(7), out.Total)

	_, l2Hits, loads := c.Stats()
	assert.Equal(t, uint64(1), l2Hits)
	assert.Equal(t, uint64(0), loads)
}

// invalidatingClient runs onSet right before the L2 write lands.
type invalidatingClient struct {
	redis.RedisClient
	onSet func()
}

func (c *invalidatingClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	if fn := c.onSet; fn != nil {
		c.onSet = nil
		fn()
	}
	return c.RedisClient.Set(ctx, key, value, expiration)
}

func TestLayered_InvalidateDuringWriteDropsValue(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	client := &invalidatingClient{RedisClient: rdb}
	c, err := NewLayered(NewCacheService(client, "test:"), LayeredConfig{TTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	client.onSet = func() { c.Invalidate(ctx, "agg") }

	var out totals
	require.NoError(t, c.GetOrLoad(ctx, "agg", &out, func(context.Context) (interface{}, error) {
		return totals{Total: 1}, nil
	}))
	assert.Equal(t, int64(1), out.Total)

	_, found := c.l1.Get("agg")
	assert.False(t, found, "stale value left in L1")
	assert.False(t, mr.Exists("test:agg"), "stale value left in L2")

	require.NoError(t, c.GetOrLoad(ctx, "agg", &out, func(context.Context) (interface{}, error) {
		return totals{Total: 2}, nil
	}))
	assert.Equal(t, int64(2), out.Total)
}

func TestLayered_WithoutL2(t *testing.T) {
	c, err := NewLayered(nil, LayeredConfig{}, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	var out totals
	require.NoError(t, c.GetOrLoad(context.Background(), "agg", &out, func(context.Context) (interface{}, error) {
		return totals{Count: 3}, nil
	}))
	assert.Equal(t, int64(3), out.Count)
	c.Invalidate(context.Background(), "agg")
}

func TestLayered_LoadErrorIsNotCached(t *testing.T) {
	c, err := NewLayered(nil, LayeredConfig{}, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	boom := errors.New("boom")
	var out totals
	err = c.GetOrLoad(context.Background(), "agg", &out, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, c.GetOrLoad(context.Background(), "agg", &out, func(context.Context) (interface{}, error) {
		return totals{Count: 1}, nil
	}))
	assert.Equal(t, int64(1), out.Count)
}

func TestLayered_ConcurrentMissesShareLoad(t *testing.T) {
	c, err := NewLayered(nil, LayeredConfig{}, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	release := make(chan struct{})
	var calls atomic.Int32
	load := func(context.Context) (interface{}, error) {
		calls.Add(1)
		<-release
		return totals{Count: 1}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out totals
			assert.NoError(t, c.GetOrLoad(context.Background(), "agg", &out, load))
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}
