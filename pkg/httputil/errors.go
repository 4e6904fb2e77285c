package httputil

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/valyala/fasthttp"

	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
	"github.com/Conte777/NewsFlow/services/session-service/pkg/validator"
)

// ValidationResponse is an error response with per-field details
type ValidationResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteMappedError writes err with the status the mapper assigns to it.
// Rate limit errors also carry a Retry-After header.
func WriteMappedError(ctx *fasthttp.RequestCtx, mapper *pkgerrors.Mapper, err error) {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		writeJSON(ctx, ValidationResponse{
			Success: false,
			Error:   "validation failed",
			Details: ve.Errors,
		}, fasthttp.StatusBadRequest)
		return
	}

	status, message := mapper.MapErrorToHTTP(err)
	if seconds, ok := pkgerrors.RetryAfter(err); ok {
		ctx.Response.Header.Set("Retry-After", strconv.Itoa(seconds))
	}
	WriteErrorResponse(ctx, message, status)
}

// DecodeJSON unmarshals the request body into v
func DecodeJSON(ctx *fasthttp.RequestCtx, v any) error {
	if len(ctx.PostBody()) == 0 {
		return pkgerrors.NewValidationError("request body is empty")
	}
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		return pkgerrors.NewValidationError("invalid request body")
	}
	return nil
}
