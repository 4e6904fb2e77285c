package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/NewsFlow/services/session-service/config"
)

func newTestDialer() *Dialer {
	return NewDialer(&config.RelayConfig{ConnectTimeout: time.Second}, zerolog.Nop())
}

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := gorilla.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(kind, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDialer_Connects(t *testing.T) {
	srv := echoServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/1/2"

	sock, err := newTestDialer().Dial(context.Background(), url)
	require.NoError(t, err)
	defer sock.Close()

	require.NoError(t, sock.WriteMessage(gorilla.TextMessage, []byte("ping")))
	kind, data, err := sock.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, gorilla.TextMessage, kind)
	assert.Equal(t, "ping", string(data))
}

func TestDialer_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = newTestDialer().Dial(context.Background(), "ws://"+addr+"/ws/1/2")
	assert.Error(t, err)
}

func TestDialer_NotAWebsocket(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestDialer().Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	assert.ErrorContains(t, err, "status 404")
}

func TestDialer_GivesUpWithContext(t *testing.T) {
	// accepts TCP but never answers the handshake
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = newTestDialer().Dial(ctx, "ws://"+ln.Addr().String())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	// either the handshake read deadline or the context fires first
	var netErr net.Error
	require.True(t, errors.As(err, &netErr), "unexpected error: %v", err)
	assert.True(t, netErr.Timeout())
}
