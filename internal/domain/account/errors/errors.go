package errors

import (
	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
)

var (
	ErrEmptyEntity         = pkgerrors.NewValidationError("entity is required")
	ErrInvalidPhoto        = pkgerrors.NewValidationError("photo id, access hash and dc id are required")
	ErrMediaMirrorDisabled = pkgerrors.NewServiceUnavailableError("media mirror is not configured")
)
