package events

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/delivery/http"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/usecase/business"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/workers"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/http/server"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/metrics"
)

// Module provides event listening and publishing for fx DI
var Module = fx.Module("events",
	fx.Provide(
		fx.Annotate(business.NewListener, fx.As(new(deps.Listener))),
		newPublisher,
		fx.Annotate(business.NewUseCase, fx.As(new(deps.Events))),
		http.NewEventsHandler,
		http.NewRouter,
	),
	workers.Module,
	fx.Invoke(registerRoutes),
)

// newPublisher binds the publisher to the configured exchange
func newPublisher(broker domain.EventBroker, cfg *config.KafkaConfig, m *metrics.Metrics, logger zerolog.Logger) deps.Publisher {
	return business.NewPublisher(broker, cfg.Exchange, m, logger)
}

// registerRoutes registers events HTTP routes on the server
func registerRoutes(srv *server.Server, router *http.Router) {
	router.RegisterRoutes(srv.Router)
}
