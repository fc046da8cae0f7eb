package sequence

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/debatearchive/catalog/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisAllocator issues ids with INCR on a single counter key. The counter
// is seeded once from the index baseline with SETNX, so an existing corpus
// keeps counting from its latest id.
type RedisAllocator struct {
	client *redis.Client
	key    string
	finder LatestFinder

	mu     sync.Mutex
	seeded bool
}

// raiseScript sets KEYS[1] to ARGV[1] only when that is larger.
var raiseScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local n = tonumber(ARGV[1])
if n > cur then
  redis.call('SET', KEYS[1], ARGV[1])
  return n
end
return cur
`)

func NewRedisAllocator(client *redis.Client, key string, f LatestFinder) *RedisAllocator {
	return &RedisAllocator{client: client, key: key, finder: f}
}

func (a *RedisAllocator) seed(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seeded {
		return nil
	}
	base, err := Baseline(ctx, a.finder)
	if err != nil {
		return err
	}
	set, err := a.client.SetNX(ctx, a.key, base, 0).Result()
	if err != nil {
		return fmt.Errorf("seed sequence %s: %w", a.key, err)
	}
	if set {
		logger.Component("sequence").Info("seeded redis sequence", "key", a.key, "baseline", base)
	}
	a.seeded = true
	return nil
}

func (a *RedisAllocator) Next(ctx context.Context) (string, error) {
	if err := a.seed(ctx); err != nil {
		return "", err
	}
	n, err := a.client.Incr(ctx, a.key).Result()
	if err != nil {
		return "", fmt.Errorf("incr sequence %s: %w", a.key, err)
	}
	return strconv.FormatInt(n, 10), nil
}

func (a *RedisAllocator) Advance(ctx context.Context, n int64) error {
	if err := a.seed(ctx); err != nil {
		return err
	}
	if err := raiseScript.Run(ctx, a.client, []string{a.key}, n).Err(); err != nil {
		return fmt.Errorf("advance sequence %s: %w", a.key, err)
	}
	return nil
}
