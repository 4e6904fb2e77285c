package domain

import (
	"sync"
	"sync/atomic"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
)

// ConnState is the lifecycle state of a pooled connection
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateAuthorized
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthorized:
		return "authorized"
	default:
		return "disconnected"
	}
}

// PooledConnection owns a live handle and the notification subscription
// attached to it. The subscription never outlives the entry.
type PooledConnection struct {
	phone  phone.Number
	handle Connection
	state  atomic.Int32

	subMu sync.Mutex
	sub   Subscription
}

// NewPooledConnection wraps handle in the given state
func NewPooledConnection(handle Connection, state ConnState) *PooledConnection {
	pc := &PooledConnection{
		phone:  handle.Phone(),
		handle: handle,
	}
	pc.state.Store(int32(state))
	return pc
}

func (c *PooledConnection) Phone() phone.Number {
	return c.phone
}

func (c *PooledConnection) Handle() Connection {
	return c.handle
}

func (c *PooledConnection) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *PooledConnection) SetState(s ConnState) {
	c.state.Store(int32(s))
}

// Attach subscribes through subscribe unless a subscription already exists.
// Returns true when a new subscription was created.
func (c *PooledConnection) Attach(subscribe func(Connection) Subscription) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.sub != nil {
		return false
	}
	c.sub = subscribe(c.handle)
	return true
}

// Subscribed reports whether a notification subscription is attached
func (c *PooledConnection) Subscribed() bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return c.sub != nil
}

// Detach cancels the subscription, if any
func (c *PooledConnection) Detach() {
	c.subMu.Lock()
	sub := c.sub
	c.sub = nil
	c.subMu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}
