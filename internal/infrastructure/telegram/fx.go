package telegram

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/metrics"
)

const shutdownTimeout = 10 * time.Second

// Module provides the MTProto connection factory and the connection pool
var Module = fx.Module("telegram",
	fx.Provide(
		NewConnectionFactory,
		NewPoolFx,
		func(p *Pool) domain.ConnectionPool { return p },
	),
)

// NewConnectionFactory builds MTProto handles whose session blob lives in
// the session store
func NewConnectionFactory(
	telegramCfg *config.TelegramConfig,
	store domain.SessionStore,
	db *gorm.DB,
	logger zerolog.Logger,
) domain.ConnectionFactory {
	var state *UpdatesStateStorage
	if telegramCfg.GapRecovery && db != nil {
		state = NewUpdatesStateStorage(db, logger)
	}

	return func(cred domain.AccountCredential) (domain.Connection, error) {
		storage, err := NewStoreSessionStorage(store, cred.SessionID)
		if err != nil {
			return nil, err
		}

		cfg := MTProtoConfig{
			Credential: cred,
			Storage:    storage,
			Logger:     logger,
			RateLimit:  telegramCfg.RateLimit,
			RateBurst:  telegramCfg.RateBurst,
		}
		if state != nil {
			cfg.UpdatesState = state
		}
		return NewMTProtoConnection(cfg)
	}
}

// NewPoolFx creates the connection pool, rehydrates it from the session
// store on start and closes every connection on stop
func NewPoolFx(
	lc fx.Lifecycle,
	telegramCfg *config.TelegramConfig,
	factory domain.ConnectionFactory,
	store domain.SessionStore,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Pool {
	pool := NewPool(PoolConfig{
		Factory:       factory,
		Store:         store,
		Metrics:       m,
		Logger:        logger,
		MaxConcurrent: telegramCfg.MaxConcurrent,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Rehydration outlives the start hook deadline
			go func() {
				startCtx, cancel := context.WithTimeout(context.Background(), telegramCfg.ConnectTimeout*time.Duration(telegramCfg.MaxConcurrent+1))
				defer cancel()

				report, err := pool.StartAll(startCtx)
				if err != nil {
					logger.Error().Err(err).Msg("Failed to rehydrate Telegram sessions")
					return
				}
				logger.Info().
					Int("started", report.Started).
					Int("failed", report.Failed).
					Int("total", report.Total).
					Msg("Telegram sessions rehydrated")
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := pool.CloseAll(stopCtx); err != nil {
				logger.Warn().Err(err).Msg("Some Telegram connections failed to close")
			}
			logger.Info().Msg("Telegram connections closed")
			return nil
		},
	})

	return pool
}
