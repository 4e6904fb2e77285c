package errors

import (
	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
)

var (
	// ErrRelayTimeout is returned when the upstream socket does not connect in time
	ErrRelayTimeout = pkgerrors.NewServiceUnavailableError("External service timeout")

	// ErrRelayUnavailable is returned when the upstream socket refuses or fails the connection
	ErrRelayUnavailable = pkgerrors.NewServiceUnavailableError("External service unavailable")

	ErrInvalidPeer = pkgerrors.NewValidationError("chat_peer and user_peer must be integers")
)
