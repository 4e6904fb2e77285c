package errors

import (
	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
)

var (
	ErrUnmappedEvent = pkgerrors.NewInternalError("event has no integration mapping")
)
