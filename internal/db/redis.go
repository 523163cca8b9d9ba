package db

import (
	"github.com/redis/go-redis/v9"

	"backend-mapssaver/internal/config"
)

// ConnectRedis returns nil when no address is configured.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
