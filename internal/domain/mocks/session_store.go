package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
)

// SessionStore is an in-memory domain.SessionStore
type SessionStore struct {
	mu    sync.Mutex
	creds map[string]domain.AccountCredential

	DeleteErr error
}

// NewSessionStore creates an empty store
func NewSessionStore() *SessionStore {
	return &SessionStore{creds: make(map[string]domain.AccountCredential)}
}

func (s *SessionStore) Get(ctx context.Context, p phone.Number) (domain.AccountCredential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[p.String()]
	return cred, ok, nil
}

func (s *SessionStore) Add(ctx context.Context, p phone.Number, apiID int, apiHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[p.String()]; ok {
		return domain.ErrDuplicateAccount
	}
	s.creds[p.String()] = domain.AccountCredential{SessionID: p, APIID: apiID, APIHash: apiHash}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, p phone.Number) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.creds, p.String())
	return nil
}

func (s *SessionStore) List(ctx context.Context) ([]domain.AccountCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.creds))
	for k := range s.creds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.AccountCredential, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.creds[k])
	}
	return out, nil
}

func (s *SessionStore) LoadSession(ctx context.Context, p phone.Number) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds[p.String()].SessionBlob, nil
}

func (s *SessionStore) StoreSession(ctx context.Context, p phone.Number, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[p.String()]
	if !ok {
		return domain.ErrAccountNotFound
	}
	cred.SessionBlob = append([]byte(nil), data...)
	s.creds[p.String()] = cred
	return nil
}

var _ domain.SessionStore = (*SessionStore)(nil)
