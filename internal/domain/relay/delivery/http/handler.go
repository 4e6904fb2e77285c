package http

import (
	"context"
	"strconv"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/entities"
	relayerrors "github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/errors"
	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
	"github.com/Conte777/NewsFlow/services/session-service/pkg/httputil"
)

// maxFrameSize bounds a single inbound frame from the local side
const maxFrameSize = 512 * 1024

// RelayHandler upgrades chat view requests and hands them to the relay
type RelayHandler struct {
	relay    deps.Relay
	upgrader websocket.FastHTTPUpgrader
	mapper   *pkgerrors.Mapper
	logger   zerolog.Logger
}

// NewRelayHandler creates a new relay handler
func NewRelayHandler(relay deps.Relay, logger zerolog.Logger) *RelayHandler {
	return &RelayHandler{
		relay: relay,
		upgrader: websocket.FastHTTPUpgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(ctx *fasthttp.RequestCtx) bool {
				return true
			},
		},
		mapper: pkgerrors.NewMapper(logger),
		logger: logger.With().Str("handler", "relay").Logger(),
	}
}

// Relay handles GET /ws/{chat_peer}/{user_peer}
func (h *RelayHandler) Relay(ctx *fasthttp.RequestCtx) {
	pairing, err := parsePairing(ctx)
	if err != nil {
		httputil.WriteMappedError(ctx, h.mapper, err)
		return
	}

	err = h.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		conn.SetReadLimit(maxFrameSize)
		// clear the read deadline the server set for the upgrade request
		_ = conn.SetReadDeadline(time.Time{})

		// the request context is gone once the connection is hijacked
		if err := h.relay.Serve(context.Background(), conn, pairing); err != nil {
			h.logger.Warn().
				Err(err).
				Int64("chat_peer", pairing.ChatPeer).
				Int64("user_peer", pairing.UserPeer).
				Msg("relay ended with error")
		}
	})
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
	}
}

func parsePairing(ctx *fasthttp.RequestCtx) (entities.Pairing, error) {
	chat, err := peerValue(ctx, "chat_peer")
	if err != nil {
		return entities.Pairing{}, err
	}
	user, err := peerValue(ctx, "user_peer")
	if err != nil {
		return entities.Pairing{}, err
	}
	return entities.Pairing{ChatPeer: chat, UserPeer: user}, nil
}

func peerValue(ctx *fasthttp.RequestCtx, name string) (int64, error) {
	raw, _ := ctx.UserValue(name).(string)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, relayerrors.ErrInvalidPeer
	}
	return v, nil
}
