package http

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/entities"
)

type fakeRelay struct {
	served int
}

func (f *fakeRelay) Serve(ctx context.Context, local deps.Socket, pairing entities.Pairing) error {
	f.served++
	return nil
}

func (f *fakeRelay) Shutdown(ctx context.Context) error { return nil }

func newRequest(chat, user string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod("GET")
	ctx.SetUserValue("chat_peer", chat)
	ctx.SetUserValue("user_peer", user)
	return ctx
}

func TestRelay_InvalidPeers(t *testing.T) {
	tests := []struct {
		name string
		chat string
		user string
	}{
		{"non-numeric chat", "abc", "1"},
		{"non-numeric user", "1", "me"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := &fakeRelay{}
			h := NewRelayHandler(relay, zerolog.Nop())

			ctx := newRequest(tt.chat, tt.user)
			h.Relay(ctx)

			assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
			assert.Zero(t, relay.served)
		})
	}
}

func TestRelay_RequiresUpgrade(t *testing.T) {
	relay := &fakeRelay{}
	h := NewRelayHandler(relay, zerolog.Nop())

	ctx := newRequest("-100123", "42")
	h.Relay(ctx)

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	assert.Zero(t, relay.served)
}

func TestParsePairing(t *testing.T) {
	p, err := parsePairing(newRequest("-100123", "42"))

	assert.NoError(t, err)
	assert.Equal(t, entities.Pairing{ChatPeer: -100123, UserPeer: 42}, p)
}
