package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/lms-curriculum-api/pkg/config"
)

const dialTimeout = 5 * time.Second

// Addr renders host:port for cfg.
func Addr(cfg config.RedisConfig) string {
	return cfg.Host + ":" + strconv.Itoa(cfg.Port)
}

// NewRedis connects to Redis and verifies the connection before returning the client.
// The dashboard cache is optional, so callers usually log the error and continue.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        Addr(cfg),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", Addr(cfg), err)
	}
	return client, nil
}
