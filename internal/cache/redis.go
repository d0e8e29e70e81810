package cache

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"todo-api/internal/config"
	"todo-api/internal/repository"
	"todo-api/pkg/logger"
)

const overviewKeyPrefix = "stats:overview:"

var (
	client *redis.Client
	once   sync.Once
)

// Client returns the global Redis client (initialized on first use).
func Client(ctx context.Context) *redis.Client {
	once.Do(func() {
		cfg := config.Get()
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error(ctx, "Invalid REDIS_URL", "error", err, "url", cfg.RedisURL)
			return
		}
		opts.PoolSize = cfg.RedisPoolSize
		client = redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error(ctx, "Redis ping failed", "error", err)
			return
		}
		logger.Info(ctx, "Redis client initialized", "pool_size", cfg.RedisPoolSize)
	})
	return client
}

func overviewKey(userID string) string {
	return overviewKeyPrefix + userID
}

// GetOverview reads a user's cached overview snapshot. Returns (nil, false)
// on miss or error; the cached payload never includes generated_at, which is
// always stamped at response time.
func GetOverview(ctx context.Context, userID string) (*repository.Overview, bool) {
	c := Client(ctx)
	if c == nil {
		return nil, false
	}
	b, err := c.Get(ctx, overviewKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get overview failed", "error", err)
		return nil, false
	}
	var o repository.Overview
	if err := json.Unmarshal(b, &o); err != nil {
		logger.Debug(ctx, "Redis unmarshal overview failed", "error", err)
		return nil, false
	}
	return &o, true
}

// SetOverview writes a user's overview snapshot with the configured TTL.
func SetOverview(ctx context.Context, userID string, o *repository.Overview) {
	c := Client(ctx)
	if c == nil {
		return
	}
	b, err := json.Marshal(o)
	if err != nil {
		logger.Debug(ctx, "Marshal overview for cache failed", "error", err)
		return
	}
	ttl := config.Get().StatsCacheTTL
	if err := c.Set(ctx, overviewKey(userID), b, ttl).Err(); err != nil {
		logger.Debug(ctx, "Redis set overview failed", "error", err)
	}
}

// InvalidateUser drops a user's cached stats so the next read recomputes.
func InvalidateUser(ctx context.Context, userID string) {
	c := Client(ctx)
	if c == nil {
		return
	}
	if err := c.Del(ctx, overviewKey(userID)).Err(); err != nil {
		logger.Debug(ctx, "Redis invalidate overview failed", "error", err)
	}
}
