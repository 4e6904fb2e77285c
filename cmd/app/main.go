package main

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/app"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
)

func main() {
	fx.New(
		app.CreateApp(),
		fx.Invoke(run),
	).Run()
}

func run(
	lc fx.Lifecycle,
	cfg *config.Config,
	pool domain.ConnectionPool,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().
				Str("service", cfg.Service.Name).
				Str("port", cfg.Service.Port).
				Str("exchange", cfg.Kafka.Exchange).
				Msg("Starting session service")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().
				Int("pooled", len(pool.All())).
				Msg("Shutting down session service...")
			return nil
		},
	})
}
