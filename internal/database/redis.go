package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/appnity/bannerstudio-backend/internal/config"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Redis is nil when REDIS_ADDR is not configured; callers must check.
var Redis *redis.Client

func InitRedis() {
	if config.AppConfig.RedisAddr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, design cache and job queue are disabled")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logger.Warn().Err(err).Msg("Failed to connect to Redis, design cache and job queue are disabled")
		return
	}

	Redis = client
	logger.Info().Str("addr", config.AppConfig.RedisAddr).Msg("Connected to Redis")
}

// CacheSet stores value as JSON. A nil client is a silent no-op.
func CacheSet(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if Redis == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, key, data, expiration).Err()
}

// CacheGet loads key into dest. It returns redis.Nil on a miss or when Redis
// is not configured.
func CacheGet(ctx context.Context, key string, dest interface{}) error {
	if Redis == nil {
		return redis.Nil
	}
	val, err := Redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(val, dest)
}

func CacheInvalidate(ctx context.Context, keys ...string) error {
	if Redis == nil || len(keys) == 0 {
		return nil
	}
	return Redis.Del(ctx, keys...).Err()
}
