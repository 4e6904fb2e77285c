package http

import (
	"encoding/base64"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/account/deps"
	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
	"github.com/Conte777/NewsFlow/services/session-service/pkg/httputil"
)

// AccountHandler serves read-only account queries
type AccountHandler struct {
	useCase deps.QueryFacade
	mapper  *pkgerrors.Mapper
	logger  zerolog.Logger
}

// NewAccountHandler creates a new account query handler
func NewAccountHandler(useCase deps.QueryFacade, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		useCase: useCase,
		mapper:  pkgerrors.NewMapper(logger),
		logger:  logger.With().Str("handler", "account").Logger(),
	}
}

// List handles GET /api/v1/accounts
func (h *AccountHandler) List(ctx *fasthttp.RequestCtx) {
	profiles, err := h.useCase.GetAccounts(ctx)
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, profiles)
}

// Get handles GET /api/v1/accounts/{phone}
func (h *AccountHandler) Get(ctx *fasthttp.RequestCtx) {
	profile, err := h.useCase.GetAccount(ctx, pathValue(ctx, "phone"))
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, profile)
}

// Dialogs handles GET /api/v1/accounts/{phone}/dialogs
func (h *AccountHandler) Dialogs(ctx *fasthttp.RequestCtx) {
	dialogs, err := h.useCase.GetDialogs(ctx, pathValue(ctx, "phone"))
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, dialogs)
}

// Dialog handles GET /api/v1/accounts/{phone}/dialogs/{entity}
func (h *AccountHandler) Dialog(ctx *fasthttp.RequestCtx) {
	dialog, err := h.useCase.GetDialogByEntity(ctx, pathValue(ctx, "phone"), pathValue(ctx, "entity"))
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	if dialog == nil {
		httputil.WriteErrorResponse(ctx, "dialog not found", fasthttp.StatusNotFound)
		return
	}
	httputil.WriteResponse(ctx, dialog)
}

// Messages handles GET /api/v1/accounts/{phone}/messages/{entity}?offset_id=&limit=
func (h *AccountHandler) Messages(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()

	offsetID, err := intArg(args, "offset_id")
	if err != nil {
		httputil.WriteErrorResponse(ctx, "offset_id must be an integer", fasthttp.StatusBadRequest)
		return
	}
	limit, err := intArg(args, "limit")
	if err != nil {
		httputil.WriteErrorResponse(ctx, "limit must be an integer", fasthttp.StatusBadRequest)
		return
	}

	messages, err := h.useCase.GetMessages(ctx, pathValue(ctx, "phone"), pathValue(ctx, "entity"), offsetID, limit)
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponse(ctx, messages)
}

// Media handles GET /api/v1/accounts/{phone}/media and returns raw bytes
func (h *AccountHandler) Media(ctx *fasthttp.RequestCtx) {
	photo, err := photoFromQuery(ctx.QueryArgs())
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	data, err := h.useCase.DownloadMedia(ctx, pathValue(ctx, "phone"), photo)
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	ctx.SetContentType(photo.MimeType)
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(data)
}

// Mirror handles POST /api/v1/accounts/{phone}/media/mirror
func (h *AccountHandler) Mirror(ctx *fasthttp.RequestCtx) {
	var photo domain.PhotoDescriptor
	if err := httputil.DecodeJSON(ctx, &photo); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	media, err := h.useCase.MirrorMedia(ctx, pathValue(ctx, "phone"), photo)
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}
	httputil.WriteResponseWithStatus(ctx, media, fasthttp.StatusCreated)
}

func pathValue(ctx *fasthttp.RequestCtx, key string) string {
	v, _ := ctx.UserValue(key).(string)
	return v
}

func intArg(args *fasthttp.Args, key string) (int, error) {
	if !args.Has(key) {
		return 0, nil
	}
	return args.GetUint(key)
}

// photoFromQuery reads id, access_hash, dc_id, file_reference (URL-safe
// base64), mime_type and thumb_size
func photoFromQuery(args *fasthttp.Args) (domain.PhotoDescriptor, error) {
	id, err := strconv.ParseInt(string(args.Peek("id")), 10, 64)
	if err != nil {
		return domain.PhotoDescriptor{}, pkgerrors.NewValidationError("id must be an integer")
	}
	accessHash, err := strconv.ParseInt(string(args.Peek("access_hash")), 10, 64)
	if err != nil {
		return domain.PhotoDescriptor{}, pkgerrors.NewValidationError("access_hash must be an integer")
	}
	dcID, err := args.GetUint("dc_id")
	if err != nil {
		return domain.PhotoDescriptor{}, pkgerrors.NewValidationError("dc_id must be an integer")
	}
	fileReference, err := base64.RawURLEncoding.DecodeString(string(args.Peek("file_reference")))
	if err != nil {
		return domain.PhotoDescriptor{}, pkgerrors.NewValidationError("file_reference must be url-safe base64")
	}

	mimeType := string(args.Peek("mime_type"))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	return domain.PhotoDescriptor{
		ID:            id,
		AccessHash:    accessHash,
		DCID:          dcID,
		FileReference: fileReference,
		MimeType:      mimeType,
		ThumbSize:     string(args.Peek("thumb_size")),
	}, nil
}
