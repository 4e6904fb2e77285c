package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
)

// Router registers relay routes
type Router struct {
	handler *RelayHandler
	logger  zerolog.Logger
}

// NewRouter creates a new relay router
func NewRouter(handler *RelayHandler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		logger:  logger,
	}
}

// RegisterRoutes registers relay routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.GET("/ws/{chat_peer}/{user_peer}", r.handler.Relay)

	r.logger.Info().Msg("Relay routes registered")
}
