package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/waterworks/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis when an address is configured.
// Returns nil otherwise; the limiter and locker degrade to pass-through.
func NewRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewTokenBucket),
	fx.Provide(NewLocker),
)
