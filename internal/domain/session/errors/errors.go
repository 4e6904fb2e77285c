package errors

import (
	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
)

var (
	ErrMissingAPICredentials = pkgerrors.NewValidationError("api_id and api_hash are required for a new account")
)
