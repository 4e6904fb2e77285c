package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/session-service/config"
)

// Module provides the optional Redis client for fx DI
var Module = fx.Module("redis",
	fx.Provide(NewClientFx),
)

// NewClientFx connects to Redis when an address is configured. It returns
// a nil client otherwise and consumers fall back to in-process state.
func NewClientFx(lc fx.Lifecycle, cfg *config.RedisConfig, logger zerolog.Logger) (*redis.Client, error) {
	if cfg.Addr == "" {
		logger.Info().Msg("Redis address not set, using in-memory challenge store")
		return nil, nil
	}

	rdb, err := NewClient(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("Closing Redis connection")
			return rdb.Close()
		},
	})

	logger.Info().Str("addr", cfg.Addr).Msg("Redis connected successfully")
	return rdb, nil
}
