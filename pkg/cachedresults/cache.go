package cachedresults

import (
	"context"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/livetrains/pkg/redis_client"
)

const TrainPositionsKey = "trainPositions"
const DefaultExpiration = 15 * time.Second

type LoadFunc func(ctx context.Context) (string, error)

type Cache struct {
	Cache *cache.Cache[string]
}

func (c *Cache) Setup() {
	c.SetupWithClient(redis_client.Client, DefaultExpiration)
}

func (c *Cache) SetupWithClient(client *redis.Client, expiration time.Duration) {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	c.Cache = cache.New[string](redisStore)
}

// GetOrLoad returns the cached value for key, calling load and storing its
// result on a miss. Failed loads are never cached.
func (c *Cache) GetOrLoad(ctx context.Context, key string, load LoadFunc) (value string, hit bool, err error) {
	cachedValue, err := c.Cache.Get(ctx, key)
	if err == nil {
		return cachedValue, true, nil
	}

	value, err = load(ctx)
	if err != nil {
		return "", false, err
	}

	if err := c.Cache.Set(ctx, key, value); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to store cached result")
	}

	return value, false, nil
}

func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.Cache.Delete(ctx, key)
}
