package telegram

import (
	"context"
	"testing"

	"github.com/gotd/td/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/mocks"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
)

func TestStoreSessionStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewSessionStore()
	p := phone.MustNew("79991234567")
	require.NoError(t, store.Add(ctx, p, 1, "hash"))

	storage, err := NewStoreSessionStorage(store, p)
	require.NoError(t, err)

	_, err = storage.LoadSession(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, storage.StoreSession(ctx, []byte(`{"Version":1}`)))

	data, err := storage.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"Version":1}`, string(data))
}

func TestNewStoreSessionStorage_Validation(t *testing.T) {
	_, err := NewStoreSessionStorage(nil, phone.MustNew("79991234567"))
	assert.Error(t, err)

	_, err = NewStoreSessionStorage(mocks.NewSessionStore(), phone.Number{})
	assert.ErrorIs(t, err, phone.ErrEmptyPhone)
}
