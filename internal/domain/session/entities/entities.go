package entities

import (
	"time"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
)

// ChallengeState is the sign-in step an AuthChallenge is waiting on
type ChallengeState string

const (
	ChallengeCodeSent         ChallengeState = "code_sent"
	ChallengePasswordRequired ChallengeState = "password_required"
)

// AuthChallenge correlates a requested verification code with its
// redemption. It is single-use: taking it from the store consumes it.
type AuthChallenge struct {
	Phone         phone.Number   `json:"phone"`
	PhoneCodeHash string         `json:"phone_code_hash"`
	State         ChallengeState `json:"state"`
	IssuedAt      time.Time      `json:"issued_at"`
}

// Expired reports whether the challenge is older than ttl at now
func (c AuthChallenge) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(c.IssuedAt) > ttl
}
