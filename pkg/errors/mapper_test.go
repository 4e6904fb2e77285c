package errors

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

func TestMapErrorToHTTP(t *testing.T) {
	m := NewMapper(zerolog.Nop())

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"nil", nil, fasthttp.StatusOK},
		{"validation", NewValidationError("bad"), fasthttp.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError("2fa"), fasthttp.StatusUnauthorized},
		{"not found", NewNotFoundError("missing"), fasthttp.StatusNotFound},
		{"conflict", NewConflictError("dup"), fasthttp.StatusConflict},
		{"too many requests", NewTooManyRequestsError("flood", 30), fasthttp.StatusTooManyRequests},
		{"unavailable", NewServiceUnavailableError("down"), fasthttp.StatusServiceUnavailable},
		{"wrapped conflict", fmt.Errorf("add: %w", NewConflictError("dup")), fasthttp.StatusConflict},
		{"unknown", fmt.Errorf("boom"), fasthttp.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := m.MapErrorToHTTP(tt.err)
			if status != tt.status {
				t.Errorf("MapErrorToHTTP() status = %d, want %d", status, tt.status)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	seconds, ok := RetryAfter(fmt.Errorf("send code: %w", NewTooManyRequestsError("flood", 42)))
	if !ok || seconds != 42 {
		t.Errorf("RetryAfter() = %d, %v; want 42, true", seconds, ok)
	}

	if _, ok := RetryAfter(NewValidationError("bad")); ok {
		t.Error("RetryAfter() should not match a validation error")
	}
}
