package cache

import (
	"context"

	"github.com/Shihab-md/unis-server-sub000/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the redis client and the JSON store. The client is nil
// when no REDIS_ADDR is configured; the store degrades to pass-through.
var Module = fx.Module("cache",
	fx.Provide(NewClient),
	fx.Provide(NewStore),
)

// NewClient connects to redis when configured, otherwise returns nil.
func NewClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, hot lookups will hit the database")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}
