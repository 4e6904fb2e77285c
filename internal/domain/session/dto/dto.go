package dto

import "github.com/Conte777/NewsFlow/services/session-service/internal/domain"

// CreateSessionRequest asks for a verification code for a phone
type CreateSessionRequest struct {
	APIID   int    `json:"api_id" validate:"omitempty,gt=0"`
	APIHash string `json:"api_hash" validate:"omitempty,max=64"`
	Phone   string `json:"phone" validate:"required,min=10,max=20"`
}

// CreateSessionResponse carries the challenge token
type CreateSessionResponse struct {
	Phone         string `json:"phone"`
	PhoneCodeHash string `json:"phone_code_hash"`
}

// AuthSessionRequest redeems a verification code
type AuthSessionRequest struct {
	Phone         string `json:"phone" validate:"required,min=10,max=20"`
	Code          string `json:"code" validate:"required,numeric,min=3,max=10"`
	PhoneCodeHash string `json:"phone_code_hash" validate:"required"`
	Password      string `json:"password,omitempty"`
}

// AuthSessionResponse is the authorized account identity
type AuthSessionResponse struct {
	Profile *domain.Profile `json:"profile"`
}
