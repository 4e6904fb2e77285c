package http

import (
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/dto"
	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
	"github.com/Conte777/NewsFlow/services/session-service/pkg/httputil"
	"github.com/Conte777/NewsFlow/services/session-service/pkg/validator"
)

// SessionHandler handles session lifecycle HTTP requests
type SessionHandler struct {
	useCase   deps.Lifecycle
	validator *validator.Validator
	mapper    *pkgerrors.Mapper
	logger    zerolog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(useCase deps.Lifecycle, v *validator.Validator, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		useCase:   useCase,
		validator: v,
		mapper:    pkgerrors.NewMapper(logger),
		logger:    logger.With().Str("handler", "session").Logger(),
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(ctx *fasthttp.RequestCtx) {
	var req dto.CreateSessionRequest
	if err := httputil.DecodeJSON(ctx, &req); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	hash, err := h.useCase.CreateSession(ctx, req.APIID, req.APIHash, req.Phone)
	if err != nil {
		h.logger.Debug().Err(err).Msg("create session failed")
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	httputil.WriteResponseWithStatus(ctx, dto.CreateSessionResponse{
		Phone:         req.Phone,
		PhoneCodeHash: hash,
	}, fasthttp.StatusCreated)
}

// Confirm handles POST /api/v1/sessions/confirm
func (h *SessionHandler) Confirm(ctx *fasthttp.RequestCtx) {
	var req dto.AuthSessionRequest
	if err := httputil.DecodeJSON(ctx, &req); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	profile, err := h.useCase.ConfirmSession(ctx, req.Code, req.PhoneCodeHash, req.Phone, req.Password)
	if err != nil {
		h.logger.Debug().Err(err).Msg("confirm session failed")
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	httputil.WriteResponse(ctx, dto.AuthSessionResponse{Profile: profile})
}

// Delete handles DELETE /api/v1/sessions/{phone}
func (h *SessionHandler) Delete(ctx *fasthttp.RequestCtx) {
	rawPhone, ok := ctx.UserValue("phone").(string)
	if !ok || rawPhone == "" {
		httputil.WriteErrorResponse(ctx, "phone is required", fasthttp.StatusBadRequest)
		return
	}

	if err := h.useCase.DeleteSession(ctx, rawPhone); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNoContent)
}
