package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dailychallenge/server/config"
)

// NewRedis returns a client for the configured Redis, or nil when Redis is disabled.
// A failed ping is logged and the client is still returned so callers can degrade per request.
func NewRedis(cfg config.AppConfig) *redis.Client {
	addr := cfg.RedisAddr()
	if addr == "" {
		return nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		Sugar.Warnf("redis ping %s failed: %v", addr, err)
	}
	return rc
}
