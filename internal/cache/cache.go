// Package cache keeps search results in Redis between writes.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/debatearchive/catalog/internal/document"
	"github.com/debatearchive/catalog/pkg/logger"
	"github.com/debatearchive/catalog/pkg/metrics"
)

const (
	keyPrefix = "catalog:search:"
	// genKey is bumped by Invalidate. It sits outside keyPrefix so the
	// invalidation scan never deletes it.
	genKey = "catalog:search-gen"
)

// SearchCache stores raw search results keyed by search type and text.
// Concurrent misses for one key share a single backend query.
type SearchCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	log    *slog.Logger
}

func New(client *redis.Client, ttl time.Duration) *SearchCache {
	return &SearchCache{client: client, ttl: ttl, log: logger.Component("search-cache")}
}

// Fetch returns the cached result for q or runs load and caches its result.
// Entries are keyed by the invalidation generation, so a load that started
// before a write is never served after it. Redis failures fall through to load.
func (c *SearchCache) Fetch(ctx context.Context, q document.Query, load func(context.Context) (*document.SearchResult, error)) (*document.SearchResult, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		metrics.SearchCacheLookups.WithLabelValues("error").Inc()
		c.log.Warn("cache generation read failed", "error", err)
		return load(ctx)
	}
	key := buildKey(gen, q)
	if res, ok := c.get(ctx, key); ok {
		return res, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if res, ok := c.get(ctx, key); ok {
			return res, nil
		}
		res, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if now, err := c.generation(ctx); err == nil && now == gen {
			c.set(ctx, key, res)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*document.SearchResult), nil
}

func (c *SearchCache) generation(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *SearchCache) get(ctx context.Context, key string) (*document.SearchResult, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.SearchCacheLookups.WithLabelValues("miss").Inc()
		} else {
			metrics.SearchCacheLookups.WithLabelValues("error").Inc()
			c.log.Warn("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var res document.SearchResult
	if err := json.Unmarshal(data, &res); err != nil {
		metrics.SearchCacheLookups.WithLabelValues("error").Inc()
		c.log.Warn("cache entry unreadable", "key", key, "error", err)
		return nil, false
	}
	metrics.SearchCacheLookups.WithLabelValues("hit").Inc()
	return &res, true
}

func (c *SearchCache) set(ctx context.Context, key string, res *document.SearchResult) {
	data, err := json.Marshal(res)
	if err != nil {
		c.log.Warn("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached search result. The generation bump comes
// first: loads still in flight can no longer store under a live key.
func (c *SearchCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, genKey).Err(); err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("delete cache keys: %w", err)
			}
			deleted += n
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	c.log.Debug("cache invalidated", "keys_deleted", deleted)
	return nil
}

func buildKey(gen int64, q document.Query) string {
	raw := q.Type.String() + "|" + strings.Join(strings.Fields(q.Text), " ")
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%d:%x", keyPrefix, gen, sum[:16])
}
