package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Layered is a read-through cache with an in-process L1 and an optional redis L2.
// Values are stored encoded so callers never share mutable state.
type Layered struct {
	l1           *ristretto.Cache
	l2           *CacheService
	singleflight singleflight.Group
	ttl          time.Duration
	logger       *zap.Logger

	gen    atomic.Uint64
	l1Hits atomic.Uint64
	l2Hits atomic.Uint64
	loads  atomic.Uint64
}

type LayeredConfig struct {
	L1MaxCost     int64
	L1NumCounters int64
	TTL           time.Duration
}

// NewLayered builds the cache. l2 may be nil when redis is disabled.
func NewLayered(l2 *CacheService, cfg LayeredConfig, logger *zap.Logger) (*Layered, error) {
	if cfg.L1MaxCost == 0 {
		cfg.L1MaxCost = 10 << 20
	}
	if cfg.L1NumCounters == 0 {
		cfg.L1NumCounters = 100000
	}
	if cfg.TTL == 0 {
		cfg.TTL = time.Minute
	}

	l1, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.L1NumCounters,
		MaxCost:     cfg.L1MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create L1 cache: %w", err)
	}

	return &Layered{l1: l1, l2: l2, ttl: cfg.TTL, logger: logger}, nil
}

// GetOrLoad fills dest from L1, then L2, then load. Concurrent misses for the
// same key share one load.
func (c *Layered) GetOrLoad(ctx context.Context, key string, dest interface{}, load func(ctx context.Context) (interface{}, error)) error {
	if val, found := c.l1.Get(key); found {
		c.l1Hits.Add(1)
		return json.Unmarshal(val.([]byte), dest)
	}

	if c.l2 != nil {
		data, err := c.l2.GetRaw(ctx, key)
		if err == nil {
			c.l2Hits.Add(1)
			c.setL1(key, data)
			return json.Unmarshal(data, dest)
		}
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("L2 cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	v, err, _ := c.singleflight.Do(key, func() (interface{}, error) {
		c.loads.Add(1)
		gen := c.gen.Load()
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal value: %w", err)
		}
		if c.gen.Load() != gen {
			// invalidated while loading
			return data, nil
		}
		c.setL1(key, data)
		if c.l2 != nil {
			if err := c.l2.SetRaw(ctx, key, data, c.ttl); err != nil {
				c.logger.Warn("L2 cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		if c.gen.Load() != gen {
			// invalidated between the check and the write
			c.drop(ctx, key)
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), dest)
}

func (c *Layered) setL1(key string, data []byte) {
	c.l1.SetWithTTL(key, data, int64(len(data)), c.ttl)
	c.l1.Wait()
}

// Invalidate drops keys from both layers.
func (c *Layered) Invalidate(ctx context.Context, keys ...string) {
	c.gen.Add(1)
	for _, k := range keys {
		c.singleflight.Forget(k)
	}
	c.drop(ctx, keys...)
}

func (c *Layered) drop(ctx context.Context, keys ...string) {
	for _, k := range keys {
		c.l1.Del(k)
	}
	if c.l2 != nil {
		if err := c.l2.Delete(ctx, keys...); err != nil {
			c.logger.Warn("L2 cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
		}
	}
}

// Stats returns hit counters: L1 hits, L2 hits and loads.
func (c *Layered) Stats() (l1Hits, l2Hits, loads uint64) {
	return c.l1Hits.Load(), c.l2Hits.Load(), c.loads.Load()
}

func (c *Layered) Close() {
	c.l1.Close()
}
