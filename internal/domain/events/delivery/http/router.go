package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
)

// Router registers event HTTP routes
type Router struct {
	handler *EventsHandler
	logger  zerolog.Logger
}

// NewRouter creates a new events router
func NewRouter(handler *EventsHandler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		logger:  logger,
	}
}

// RegisterRoutes registers event routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.POST("/api/v1/listening", r.handler.StartListening)

	r.logger.Info().Msg("Events routes registered")
}
