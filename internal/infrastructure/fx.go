package infrastructure

import (
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/cache"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/database"
	httpfx "github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/http"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/kafka"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/logger"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/redis"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/s3"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/telegram"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/websocket"
)

// Module aggregates all infrastructure modules
var Module = fx.Module("infrastructure",
	logger.Module,
	database.Module, // Must be before telegram (gap recovery state lives in *gorm.DB)
	metrics.Module,
	cache.Module,
	redis.Module,
	s3.Module,
	telegram.Module,
	kafka.Module,
	websocket.Module,
	httpfx.Module,
)
