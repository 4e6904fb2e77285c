package s3

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/account/deps"
)

// Module provides the optional media mirror for fx DI
var Module = fx.Module("s3",
	fx.Provide(NewMediaUploaderFx),
)

// NewMediaUploaderFx returns a nil uploader when no endpoint is configured,
// which turns media mirroring off
func NewMediaUploaderFx(lc fx.Lifecycle, cfg *config.S3Config, logger zerolog.Logger) (deps.MediaUploader, error) {
	if !cfg.Enabled() {
		logger.Info().Msg("S3 endpoint not set, media mirror disabled")
		return nil, nil
	}

	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().Msg("initializing S3/MinIO client...")
			if err := client.EnsureBucket(ctx); err != nil {
				return err
			}
			logger.Info().Msg("S3/MinIO client initialized successfully")
			return nil
		},
	})

	return client, nil
}
