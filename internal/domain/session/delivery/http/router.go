package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
)

// Router registers session lifecycle HTTP routes
type Router struct {
	handler *SessionHandler
	logger  zerolog.Logger
}

// NewRouter creates a new session router
func NewRouter(handler *SessionHandler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		logger:  logger,
	}
}

// RegisterRoutes registers session routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.POST("/api/v1/sessions", r.handler.Create)
	rt.POST("/api/v1/sessions/confirm", r.handler.Confirm)
	rt.DELETE("/api/v1/sessions/{phone}", r.handler.Delete)

	r.logger.Info().Msg("Session routes registered")
}
