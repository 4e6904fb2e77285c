// Package mocks provides in-memory doubles of the domain contracts for tests
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
)

// Connection is a scriptable domain.Connection
type Connection struct {
	mu sync.Mutex

	PhoneNumber phone.Number
	Connected   bool
	Authorized  bool

	// CodeHash is returned by SendCode
	CodeHash string
	// ValidCode is the only code SignIn accepts
	ValidCode string
	// Password enables 2FA when non-empty
	Password string
	// SignInDelay stalls SignIn after it is counted
	SignInDelay time.Duration

	Profile     domain.Profile
	DialogList  []domain.Dialog
	MessageList []domain.Message
	Media       []byte

	ConnectErr    error
	DisconnectErr error
	AuthStatusErr error
	SendCodeErr   error
	SignInErr     error
	LogOutErr     error
	SelfErr       error
	DialogsErr    error
	MessagesErr   error
	DownloadErr   error

	ConnectCalls    int
	DisconnectCalls int
	LogOutCalls     int
	SignInCalls     int
	PasswordCalls   int
	LastEntity      string
	LastOffsetID    int
	LastLimit       int
	LastPhoto       domain.PhotoDescriptor

	handlers map[int]func(ctx context.Context, msg domain.Message)
	nextID   int
}

// NewConnection creates a connection double for p
func NewConnection(p phone.Number) *Connection {
	return &Connection{
		PhoneNumber: p,
		CodeHash:    "hash-" + p.String(),
		ValidCode:   "12345",
		Profile:     domain.Profile{ID: 1, Phone: p.String(), FirstName: "Test"},
		handlers:    make(map[int]func(ctx context.Context, msg domain.Message)),
	}
}

func (c *Connection) Phone() phone.Number {
	return c.PhoneNumber
}

func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ConnectCalls++
	if c.ConnectErr != nil {
		return c.ConnectErr
	}
	c.Connected = true
	return nil
}

func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DisconnectCalls++
	c.Connected = false
	return c.DisconnectErr
}

func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Connected
}

func (c *Connection) IsAuthorized(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Authorized, c.AuthStatusErr
}

func (c *Connection) SendCode(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendCodeErr != nil {
		return "", c.SendCodeErr
	}
	return c.CodeHash, nil
}

func (c *Connection) SignIn(ctx context.Context, code, phoneCodeHash string) (*domain.Profile, error) {
	c.mu.Lock()
	c.SignInCalls++
	delay := c.SignInDelay
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SignInErr != nil {
		return nil, c.SignInErr
	}
	if code != c.ValidCode || phoneCodeHash != c.CodeHash {
		return nil, domain.ErrInvalidCode
	}
	if c.Password != "" {
		return nil, domain.ErrPasswordRequired
	}
	c.Authorized = true
	profile := c.Profile
	return &profile, nil
}

func (c *Connection) CheckPassword(ctx context.Context, password string) (*domain.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PasswordCalls++
	if password != c.Password {
		return nil, domain.ErrInvalidCode
	}
	c.Authorized = true
	profile := c.Profile
	return &profile, nil
}

func (c *Connection) LogOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LogOutCalls++
	if c.LogOutErr != nil {
		return c.LogOutErr
	}
	c.Authorized = false
	return nil
}

func (c *Connection) Self(ctx context.Context) (*domain.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SelfErr != nil {
		return nil, c.SelfErr
	}
	profile := c.Profile
	return &profile, nil
}

func (c *Connection) Dialogs(ctx context.Context) ([]domain.Dialog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.DialogsErr != nil {
		return nil, c.DialogsErr
	}
	return append([]domain.Dialog(nil), c.DialogList...), nil
}

func (c *Connection) Messages(ctx context.Context, entity string, offsetID, limit int) ([]domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastEntity = entity
	c.LastOffsetID = offsetID
	c.LastLimit = limit
	if c.MessagesErr != nil {
		return nil, c.MessagesErr
	}
	return append([]domain.Message(nil), c.MessageList...), nil
}

func (c *Connection) Download(ctx context.Context, photo domain.PhotoDescriptor) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastPhoto = photo
	if c.DownloadErr != nil {
		return nil, c.DownloadErr
	}
	return c.Media, nil
}

func (c *Connection) OnNewMessage(fn func(ctx context.Context, msg domain.Message)) domain.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = fn
	return &subscription{conn: c, id: id}
}

// SignIns returns the number of SignIn calls so far
func (c *Connection) SignIns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.SignInCalls
}

// LogOuts returns the number of LogOut calls so far
func (c *Connection) LogOuts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.LogOutCalls
}

// Emit delivers msg to every subscribed handler
func (c *Connection) Emit(ctx context.Context, msg domain.Message) {
	c.mu.Lock()
	handlers := make([]func(context.Context, domain.Message), 0, len(c.handlers))
	for id := 0; id < c.nextID; id++ {
		if h, ok := c.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(ctx, msg)
	}
}

// Handlers returns the number of active subscriptions
func (c *Connection) Handlers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}

type subscription struct {
	conn *Connection
	id   int
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.conn.mu.Lock()
		delete(s.conn.handlers, s.id)
		s.conn.mu.Unlock()
	})
}

// Factory hands out one Connection double per phone and reuses it across builds
type Factory struct {
	mu    sync.Mutex
	conns map[string]*Connection
	Err   error
	Built int

	// Setup configures freshly created doubles
	Setup func(c *Connection)
}

// NewFactory creates an empty factory
func NewFactory() *Factory {
	return &Factory{conns: make(map[string]*Connection)}
}

// Build satisfies domain.ConnectionFactory
func (f *Factory) Build(cred domain.AccountCredential) (domain.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.Built++
	return f.connLocked(cred.SessionID), nil
}

// Conn returns the double for p, creating it if needed
func (f *Factory) Conn(p phone.Number) *Connection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connLocked(p)
}

func (f *Factory) connLocked(p phone.Number) *Connection {
	c, ok := f.conns[p.String()]
	if !ok {
		c = NewConnection(p)
		if f.Setup != nil {
			f.Setup(c)
		}
		f.conns[p.String()] = c
	}
	return c
}

var _ domain.Connection = (*Connection)(nil)
