package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/entities"
)

const keyPrefix = "session:challenge:"

// ChallengeStore implements deps.ChallengeStore on Redis so that a code
// requested through one replica can be redeemed through another
type ChallengeStore struct {
	rdb       *redis.Client
	retention time.Duration
}

// NewChallengeStore creates a Redis-backed challenge store
func NewChallengeStore(rdb *redis.Client, retention time.Duration) *ChallengeStore {
	return &ChallengeStore{rdb: rdb, retention: retention}
}

func challengeKey(p phone.Number) string {
	return keyPrefix + p.String()
}

// Put stores the challenge with an expiry of retention
func (s *ChallengeStore) Put(ctx context.Context, challenge entities.AuthChallenge) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}

	if err := s.rdb.Set(ctx, challengeKey(challenge.Phone), payload, s.retention).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// Take reads and deletes the challenge with GETDEL
func (s *ChallengeStore) Take(ctx context.Context, p phone.Number) (entities.AuthChallenge, bool, error) {
	payload, err := s.rdb.GetDel(ctx, challengeKey(p)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entities.AuthChallenge{}, false, nil
	}
	if err != nil {
		return entities.AuthChallenge{}, false, fmt.Errorf("failed to take challenge: %w", err)
	}

	var challenge entities.AuthChallenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return entities.AuthChallenge{}, false, fmt.Errorf("failed to decode challenge: %w", err)
	}
	return challenge, true, nil
}

// Delete removes the challenge if present
func (s *ChallengeStore) Delete(ctx context.Context, p phone.Number) error {
	if err := s.rdb.Del(ctx, challengeKey(p)).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

var _ deps.ChallengeStore = (*ChallengeStore)(nil)
