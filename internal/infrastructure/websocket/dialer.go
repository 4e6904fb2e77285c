package websocket

import (
	"context"
	"fmt"
	"net/http"

	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/deps"
)

// maxMessageSize bounds a single frame read from upstream
const maxMessageSize = 512 * 1024

// Dialer opens upstream relay sockets with gorilla/websocket
type Dialer struct {
	dialer *gorilla.Dialer
	logger zerolog.Logger
}

// NewDialer creates a dialer whose handshake is bounded by the relay connect timeout
func NewDialer(cfg *config.RelayConfig, logger zerolog.Logger) *Dialer {
	return &Dialer{
		dialer: &gorilla.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.ConnectTimeout,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
		logger: logger.With().Str("component", "ws-dialer").Logger(),
	}
}

// Dial connects to url. The attempt is abandoned when ctx is done.
func (d *Dialer) Dial(ctx context.Context, url string) (deps.Socket, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("upstream handshake to %s failed with status %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	conn.SetReadLimit(maxMessageSize)
	d.logger.Debug().Str("url", url).Msg("Connected upstream")
	return conn, nil
}

var _ deps.Dialer = (*Dialer)(nil)
