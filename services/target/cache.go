package target

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"salesdesk/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// summaryStore is the subset of *redis.Client the cache needs.
type summaryStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SummaryCache is a read-through cache for the ledger summary. Concurrent
// misses share one load. A nil store turns it into a pass-through.
type SummaryCache struct {
	store summaryStore
	ttl   time.Duration
	group singleflight.Group
}

func NewSummaryCache(store summaryStore, ttl time.Duration) *SummaryCache {
	return &SummaryCache{store: store, ttl: ttl}
}

func (c *SummaryCache) key() string {
	return rediskey.BuildTargetSummaryKey("")
}

func (c *SummaryCache) Get(ctx context.Context, load func(ctx context.Context) (*Summary, error)) (*Summary, error) {
	if c.store != nil {
		b, err := c.store.Get(ctx, c.key()).Bytes()
		switch {
		case err == nil:
			var s Summary
			if err := json.Unmarshal(b, &s); err == nil {
				return &s, nil
			}
			zap.L().Warn("discarding undecodable target summary", zap.Error(err))
		case !errors.Is(err, redis.Nil):
			zap.L().Warn("failed to read target summary cache", zap.Error(err))
		}
	}

	v, err, _ := c.group.Do(c.key(), func() (any, error) {
		s, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Summary), nil
}

func (c *SummaryCache) Set(ctx context.Context, s *Summary) {
	if c.store == nil || s == nil {
		return
	}
	b, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, c.key(), b, c.ttl).Err(); err != nil {
		zap.L().Warn("failed to write target summary cache", zap.Error(err))
	}
}

func (c *SummaryCache) Invalidate(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.Del(ctx, c.key()).Err(); err != nil {
		zap.L().Warn("failed to invalidate target summary cache", zap.Error(err))
	}
}
