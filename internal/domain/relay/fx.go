package relay

import (
	"context"

	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/delivery/http"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/usecase/business"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/http/server"
)

// Module provides the websocket relay for fx DI
var Module = fx.Module("relay",
	fx.Provide(
		fx.Annotate(business.NewRelay, fx.As(new(deps.Relay))),
		http.NewRelayHandler,
		http.NewRouter,
	),
	fx.Invoke(registerRoutes, registerLifecycle),
)

// registerRoutes registers relay HTTP routes on the server
func registerRoutes(srv *server.Server, router *http.Router) {
	router.RegisterRoutes(srv.Router)
}

// registerLifecycle tears down open pairings before the server stops
func registerLifecycle(lc fx.Lifecycle, relay deps.Relay) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return relay.Shutdown(ctx)
		},
	})
}
