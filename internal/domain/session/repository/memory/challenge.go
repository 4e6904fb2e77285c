package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/entities"
)

// ChallengeStore implements deps.ChallengeStore in process memory.
// Challenges are kept for retention after issue so that a late
// redemption can still be told apart from a missing one.
type ChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]entities.AuthChallenge
	retention  time.Duration
	now        func() time.Time
}

// NewChallengeStore creates an in-memory challenge store
func NewChallengeStore(retention time.Duration) *ChallengeStore {
	return &ChallengeStore{
		challenges: make(map[string]entities.AuthChallenge),
		retention:  retention,
		now:        time.Now,
	}
}

// Put stores the challenge, replacing any previous one for the phone
func (s *ChallengeStore) Put(ctx context.Context, challenge entities.AuthChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[challenge.Phone.String()] = challenge
	return nil
}

// Take returns and removes the challenge
func (s *ChallengeStore) Take(ctx context.Context, p phone.Number) (entities.AuthChallenge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[p.String()]
	if ok {
		delete(s.challenges, p.String())
	}
	return challenge, ok, nil
}

// Delete removes the challenge if present
func (s *ChallengeStore) Delete(ctx context.Context, p phone.Number) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, p.String())
	return nil
}

// Sweep drops challenges issued more than retention ago and returns how
// many were removed
func (s *ChallengeStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, challenge := range s.challenges {
		if challenge.Expired(now, s.retention) {
			delete(s.challenges, key)
			removed++
		}
	}
	return removed
}

// Run sweeps on every interval until ctx is done
func (s *ChallengeStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Len returns the number of pending challenges
func (s *ChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}

var _ deps.ChallengeStore = (*ChallengeStore)(nil)
