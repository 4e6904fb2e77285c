package deps

import (
	"context"
	"time"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/entities"
)

// Socket is a message-oriented bidirectional connection. Both websocket
// libraries in use satisfy it with their *Conn type.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens the upstream side of a pairing. It must give up once ctx is done.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// Relay bridges a local socket with its upstream counterpart
type Relay interface {
	// Serve blocks until the pairing is torn down. Both sockets are closed on return.
	Serve(ctx context.Context, local Socket, pairing entities.Pairing) error
	// Shutdown tears down every active pairing and waits for them
	Shutdown(ctx context.Context) error
}
