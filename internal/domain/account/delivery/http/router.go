package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
)

// Router registers account query and health HTTP routes
type Router struct {
	handler *AccountHandler
	health  *HealthHandler
	logger  zerolog.Logger
}

// NewRouter creates a new account router
func NewRouter(handler *AccountHandler, health *HealthHandler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		health:  health,
		logger:  logger,
	}
}

// RegisterRoutes registers account routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.GET("/health", r.health.Handle)

	rt.GET("/api/v1/accounts", r.handler.List)
	rt.GET("/api/v1/accounts/{phone}", r.handler.Get)
	rt.GET("/api/v1/accounts/{phone}/dialogs", r.handler.Dialogs)
	rt.GET("/api/v1/accounts/{phone}/dialogs/{entity}", r.handler.Dialog)
	rt.GET("/api/v1/accounts/{phone}/messages/{entity}", r.handler.Messages)
	rt.GET("/api/v1/accounts/{phone}/media", r.handler.Media)
	rt.POST("/api/v1/accounts/{phone}/media/mirror", r.handler.Mirror)

	r.logger.Info().Msg("Account routes registered")
}
