package domain

import (
	"context"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
)

// Connection is a live session with the Telegram network for one account
type Connection interface {
	// Phone returns the account key the connection was built for
	Phone() phone.Number

	// Connect establishes the transport. It does not sign in.
	Connect(ctx context.Context) error

	// Disconnect stops the transport; safe to call repeatedly
	Disconnect(ctx context.Context) error

	// IsConnected reports whether the transport is up
	IsConnected() bool

	// IsAuthorized reports whether the stored session is signed in
	IsAuthorized(ctx context.Context) (bool, error)

	// SendCode requests a verification code and returns the challenge token
	SendCode(ctx context.Context) (string, error)

	// SignIn redeems a verification code against its challenge token
	SignIn(ctx context.Context, code, phoneCodeHash string) (*Profile, error)

	// CheckPassword completes a sign-in that requires the 2FA password
	CheckPassword(ctx context.Context, password string) (*Profile, error)

	// LogOut terminates the remote session
	LogOut(ctx context.Context) error

	// Self returns the signed-in account profile
	Self(ctx context.Context) (*Profile, error)

	// Dialogs returns the account's chat list
	Dialogs(ctx context.Context) ([]Dialog, error)

	// Messages returns history of entity older than offsetID
	Messages(ctx context.Context, entity string, offsetID, limit int) ([]Message, error)

	// Download fetches the bytes of a photo
	Download(ctx context.Context, photo PhotoDescriptor) ([]byte, error)

	// OnNewMessage registers fn for every inbound message notification
	OnNewMessage(fn func(ctx context.Context, msg Message)) Subscription
}

// Subscription detaches a notification callback
type Subscription interface {
	Unsubscribe()
}

// ConnectionFactory builds an unconnected handle from a stored credential
type ConnectionFactory func(cred AccountCredential) (Connection, error)

// SessionStore is durable storage of account credentials keyed by phone
type SessionStore interface {
	// Get returns the credential, or false when none is stored
	Get(ctx context.Context, p phone.Number) (AccountCredential, bool, error)

	// Add registers a new account. Fails with ErrDuplicateAccount.
	Add(ctx context.Context, p phone.Number, apiID int, apiHash string) error

	// Delete removes the credential and its session blob atomically
	Delete(ctx context.Context, p phone.Number) error

	// List returns every stored credential
	List(ctx context.Context) ([]AccountCredential, error)

	// LoadSession returns the provider session blob, or nil when absent
	LoadSession(ctx context.Context, p phone.Number) ([]byte, error)

	// StoreSession replaces the provider session blob
	StoreSession(ctx context.Context, p phone.Number, data []byte) error
}

// ConnectionPool keeps at most one live connection per phone
type ConnectionPool interface {
	// Start builds and connects a handle for cred
	Start(ctx context.Context, cred AccountCredential) (*PooledConnection, error)

	// Register adds an already connected and authorized handle
	Register(ctx context.Context, conn Connection) (*PooledConnection, error)

	// Get returns the pooled connection or ErrNotPooled
	Get(p phone.Number) (*PooledConnection, error)

	// All returns every pooled connection in insertion order
	All() []*PooledConnection

	// Close disconnects and removes the entry; absent phones are a no-op
	Close(ctx context.Context, p phone.Number) error

	// CloseAll disconnects every entry and aggregates failures
	CloseAll(ctx context.Context) error
}

// EventBroker is the message broker integration events are published to
type EventBroker interface {
	// DeclareExchange makes sure the named exchange exists
	DeclareExchange(ctx context.Context, name string) error

	// Publish hands body to the broker under exchange and routingKey
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error

	// IsHealthy reports whether the broker connection is usable
	IsHealthy() bool
}
