package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/session"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
)

// StoreSessionStorage implements session.Storage on top of the account
// store so the MTProto session blob lives next to the credential
type StoreSessionStorage struct {
	store domain.SessionStore
	phone phone.Number
}

// NewStoreSessionStorage creates session storage bound to one account
func NewStoreSessionStorage(store domain.SessionStore, p phone.Number) (*StoreSessionStorage, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if p.IsZero() {
		return nil, phone.ErrEmptyPhone
	}
	return &StoreSessionStorage{store: store, phone: p}, nil
}

// LoadSession loads the session blob
func (s *StoreSessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	data, err := s.store.LoadSession(ctx, s.phone)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if len(data) == 0 {
		return nil, session.ErrNotFound
	}
	return data, nil
}

// StoreSession persists the session blob
func (s *StoreSessionStorage) StoreSession(ctx context.Context, data []byte) error {
	if err := s.store.StoreSession(ctx, s.phone, data); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

var _ session.Storage = (*StoreSessionStorage)(nil)
