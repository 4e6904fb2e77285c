package session

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/delivery/http"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/repository/memory"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/repository/postgres"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/repository/redis"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/usecase/business"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/http/server"
)

// challengeRetention keeps a challenge around past its TTL so an expired
// code is reported as expired rather than unknown
const challengeRetention = 2

// sweepInterval is how often the in-memory store drops stale challenges
const sweepInterval = time.Minute

// Module provides session lifecycle components for fx DI
var Module = fx.Module("session",
	fx.Provide(
		postgres.NewRepository,
		newChallengeStore,
		fx.Annotate(business.NewUseCase, fx.As(new(deps.Lifecycle))),
		http.NewSessionHandler,
		http.NewRouter,
	),
	fx.Invoke(registerRoutes),
)

// newChallengeStore selects Redis when a client is configured and the
// in-memory store otherwise
func newChallengeStore(lc fx.Lifecycle, rdb *goredis.Client, cfg *config.TelegramConfig, logger zerolog.Logger) deps.ChallengeStore {
	retention := cfg.ChallengeTTL * challengeRetention
	if rdb != nil {
		return redis.NewChallengeStore(rdb, retention)
	}

	store := memory.NewChallengeStore(retention)
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go store.Run(ctx, sweepInterval)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			logger.Debug().Int("pending", store.Len()).Msg("Challenge sweeper stopped")
			return nil
		},
	})
	return store
}

// registerRoutes registers session HTTP routes on the server
func registerRoutes(srv *server.Server, router *http.Router) {
	router.RegisterRoutes(srv.Router)
}
