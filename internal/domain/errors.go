package domain

import (
	"errors"
	"fmt"

	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
)

// Provider errors. Every error returned by a Connection is exactly one of these.
var (
	// ErrInvalidPhone is returned when the provider rejects the phone number
	ErrInvalidPhone = pkgerrors.NewValidationError("phone number rejected by telegram")

	// ErrInvalidCode is returned for a wrong verification code, a mismatched
	// challenge token or a wrong 2FA password
	ErrInvalidCode = pkgerrors.NewValidationError("invalid verification code")

	// ErrCodeExpired is returned when the challenge token is no longer valid
	ErrCodeExpired = pkgerrors.NewValidationError("verification code expired")

	// ErrPasswordRequired is returned when the account has 2FA enabled and no password was supplied
	ErrPasswordRequired = pkgerrors.NewUnauthorizedError("2fa password required")

	// ErrInvalidPeer is returned when a chat or user reference does not resolve
	ErrInvalidPeer = pkgerrors.NewValidationError("invalid peer reference")

	// ErrFloodWait matches any *FloodWaitError via errors.Is
	ErrFloodWait = errors.New("flood wait")
)

// Resource-state errors
var (
	ErrNotPooled         = pkgerrors.NewNotFoundError("account has no live connection")
	ErrAlreadyPooled     = pkgerrors.NewConflictError("account already has a live connection")
	ErrDuplicateAccount  = pkgerrors.NewConflictError("account already registered")
	ErrAccountNotFound   = pkgerrors.NewNotFoundError("account not found")
	ErrAlreadyAuthorized = pkgerrors.NewConflictError("session is already authorized")
	ErrConnectFailed     = pkgerrors.NewServiceUnavailableError("failed to connect to telegram")
	ErrNotConnected      = pkgerrors.NewServiceUnavailableError("connection is not established")
)

// FloodWaitError carries the cooldown the provider imposed on an operation
type FloodWaitError struct {
	Seconds int
}

// NewFloodWait creates a flood wait error
func NewFloodWait(seconds int) *FloodWaitError {
	return &FloodWaitError{Seconds: seconds}
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait: retry in %d seconds", e.Seconds)
}

// Is makes errors.Is(err, ErrFloodWait) true for every flood wait
func (e *FloodWaitError) Is(target error) bool {
	return target == ErrFloodWait
}

// Unwrap exposes the error as HTTP 429 to the error mapper
func (e *FloodWaitError) Unwrap() error {
	return pkgerrors.NewTooManyRequestsError(e.Error(), e.Seconds)
}

// RPCError is a provider error that has no dedicated kind
type RPCError struct {
	Code    int
	Type    string
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("telegram rpc error %d: %s", e.Code, e.Message)
}

// Unwrap exposes the error as HTTP 503 to the error mapper
func (e *RPCError) Unwrap() error {
	return pkgerrors.NewServiceUnavailableError(e.Error())
}
