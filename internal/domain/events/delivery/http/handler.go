package http

import (
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/deps"
	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
	"github.com/Conte777/NewsFlow/services/session-service/pkg/httputil"
)

// EventsHandler exposes the listening command
type EventsHandler struct {
	useCase deps.Events
	mapper  *pkgerrors.Mapper
	logger  zerolog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(useCase deps.Events, logger zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		useCase: useCase,
		mapper:  pkgerrors.NewMapper(logger),
		logger:  logger.With().Str("handler", "events").Logger(),
	}
}

// StartListening handles POST /api/v1/listening
func (h *EventsHandler) StartListening(ctx *fasthttp.RequestCtx) {
	report, err := h.useCase.StartListening(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("start listening finished with errors")
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	httputil.WriteResponse(ctx, report)
}
