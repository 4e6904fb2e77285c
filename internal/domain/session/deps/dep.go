package deps

import (
	"context"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/entities"
)

// ChallengeStore keeps pending sign-in challenges between the code
// request and its redemption
type ChallengeStore interface {
	Put(ctx context.Context, challenge entities.AuthChallenge) error
	// Take atomically returns and removes the challenge
	Take(ctx context.Context, p phone.Number) (entities.AuthChallenge, bool, error)
	Delete(ctx context.Context, p phone.Number) error
}

// Lifecycle creates, confirms and deletes account sessions
type Lifecycle interface {
	CreateSession(ctx context.Context, apiID int, apiHash, rawPhone string) (string, error)
	ConfirmSession(ctx context.Context, code, phoneCodeHash, rawPhone, password string) (*domain.Profile, error)
	DeleteSession(ctx context.Context, rawPhone string) error
}
