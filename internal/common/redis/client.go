package redis

import (
	"context"

	"github.com/MagicKrazik/ALPHA/internal/common/config"

	"github.com/go-redis/redis/v8"
)

// Client aliases the go-redis client so callers need a single import.
type Client = redis.Client

// NewRedisClient creates a Redis client from cfg.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
