package httputil

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// Response is the envelope every JSON endpoint answers with
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteResponse writes a 200 envelope around data
func WriteResponse(ctx *fasthttp.RequestCtx, data any) {
	WriteResponseWithStatus(ctx, data, fasthttp.StatusOK)
}

// WriteResponseWithStatus writes a successful envelope with a custom status
func WriteResponseWithStatus(ctx *fasthttp.RequestCtx, data any, status int) {
	writeJSON(ctx, Response{Success: true, Data: data}, status)
}

// WriteErrorResponse writes a failed envelope carrying message
func WriteErrorResponse(ctx *fasthttp.RequestCtx, message string, status int) {
	writeJSON(ctx, Response{Success: false, Error: message}, status)
}

func writeJSON(ctx *fasthttp.RequestCtx, data any, status int) {
	body, err := json.Marshal(data)
	if err != nil {
		ctx.SetContentType("application/json")
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"success":false,"error":"failed to marshal response"}`)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
