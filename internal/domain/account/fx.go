package account

import (
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/account/delivery/http"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/account/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/account/usecase/business"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/http/server"
)

// Module provides account query components for fx DI
var Module = fx.Module("account",
	fx.Provide(
		fx.Annotate(business.NewUseCase, fx.As(new(deps.QueryFacade))),
		http.NewAccountHandler,
		http.NewHealthHandler,
		http.NewRouter,
	),
	fx.Invoke(registerRoutes),
)

// registerRoutes registers account HTTP routes on the server
func registerRoutes(srv *server.Server, router *http.Router) {
	router.RegisterRoutes(srv.Router)
}
