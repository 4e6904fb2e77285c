package business

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/entities"
	relayerrors "github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/errors"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/metrics"
)

var errSocketClosed = errors.New("socket closed")

type inbound struct {
	kind int
	data []byte
	err  error
}

type fakeSocket struct {
	in     chan inbound
	closed chan struct{}

	mu         sync.Mutex
	written    []string
	pings      int
	closeCalls int
	writeErr   error
	closeErr   error
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		in:     make(chan inbound, 16),
		closed: make(chan struct{}),
	}
}

func (s *fakeSocket) push(text string) {
	s.in <- inbound{kind: entities.TextMessage, data: []byte(text)}
}

func (s *fakeSocket) disconnect() {
	s.in <- inbound{err: errors.New("peer went away")}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-s.in:
		return msg.kind, msg.data, msg.err
	case <-s.closed:
		return 0, nil, errSocketClosed
	}
}

func (s *fakeSocket) WriteMessage(kind int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.written = append(s.written, string(data))
	return nil
}

func (s *fakeSocket) WriteControl(kind int, data []byte, deadline time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings++
	return nil
}

func (s *fakeSocket) SetWriteDeadline(t time.Time) error { return nil }

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	if s.closeCalls == 1 {
		close(s.closed)
	}
	return s.closeErr
}

func (s *fakeSocket) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}

func (s *fakeSocket) closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

func (s *fakeSocket) pingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

type fakeDialer struct {
	socket  *fakeSocket
	err     error
	block   bool
	lastURL string

	returned chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (deps.Socket, error) {
	d.lastURL = url
	if d.returned != nil {
		defer close(d.returned)
	}
	if d.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.socket, nil
}

type stateRecorder struct {
	mu     sync.Mutex
	states []entities.State
}

func (r *stateRecorder) record(_ entities.Pairing, s entities.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) all() []entities.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.State(nil), r.states...)
}

func newRelay(dialer deps.Dialer, poll time.Duration) (*Relay, *stateRecorder) {
	r := NewRelay(dialer, &config.RelayConfig{
		UpstreamURL:    "ws://bots:1111/ws/{chat_peer}/{user_peer}",
		ConnectTimeout: 50 * time.Millisecond,
		PollTimeout:    poll,
		WriteTimeout:   time.Second,
	}, metrics.GetDefaultMetrics(), zerolog.Nop())

	rec := &stateRecorder{}
	r.onTransition = rec.record
	return r, rec
}

func serve(r *Relay, local *fakeSocket) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- r.Serve(context.Background(), local, entities.Pairing{ChatPeer: 10, UserPeer: 20})
	}()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not finish")
		return nil
	}
}

func TestRelay_ForwardsBothWays(t *testing.T) {
	local, remote := newFakeSocket(), newFakeSocket()
	dialer := &fakeDialer{socket: remote}
	r, rec := newRelay(dialer, time.Minute)

	done := serve(r, local)

	local.push("hello")
	remote.push("world")

	assert.Eventually(t, func() bool {
		return len(remote.messages()) == 1 && len(local.messages()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, r.Active())

	local.disconnect()
	require.NoError(t, wait(t, done))

	assert.Equal(t, "ws://bots:1111/ws/10/20", dialer.lastURL)
	assert.Equal(t, []string{"hello"}, remote.messages())
	assert.Equal(t, []string{"world"}, local.messages())
	assert.Equal(t, 1, local.closes())
	assert.Equal(t, 1, remote.closes())
	assert.Equal(t, 0, r.Active())
	assert.Equal(t, []entities.State{
		entities.StateConnecting,
		entities.StateRelaying,
		entities.StateClosing,
		entities.StateClosed,
	}, rec.all())
}

func TestRelay_RemoteDisconnectStopsPartner(t *testing.T) {
	local, remote := newFakeSocket(), newFakeSocket()
	r, _ := newRelay(&fakeDialer{socket: remote}, time.Minute)

	done := serve(r, local)
	remote.disconnect()

	require.NoError(t, wait(t, done))
	assert.Equal(t, 1, local.closes())
	assert.Equal(t, 1, remote.closes())
}

func TestRelay_ConnectTimeout(t *testing.T) {
	local := newFakeSocket()
	dialer := &fakeDialer{block: true, returned: make(chan struct{})}
	r, rec := newRelay(dialer, time.Minute)

	err := wait(t, serve(r, local))

	assert.ErrorIs(t, err, relayerrors.ErrRelayTimeout)
	assert.Equal(t, []string{"External service timeout"}, local.messages())
	assert.Equal(t, 1, local.closes())
	assert.Equal(t, []entities.State{entities.StateConnecting, entities.StateClosed}, rec.all())

	select {
	case <-dialer.returned:
	default:
		t.Fatal("dial attempt still running after the relay closed")
	}
}

func TestRelay_ConnectRefused(t *testing.T) {
	local := newFakeSocket()
	r, _ := newRelay(&fakeDialer{err: errors.New("connection refused")}, time.Minute)

	err := wait(t, serve(r, local))

	assert.ErrorIs(t, err, relayerrors.ErrRelayUnavailable)
	assert.Equal(t, []string{"External service unavailable"}, local.messages())
	assert.Equal(t, 1, local.closes())
}

func TestRelay_SkipsNonTextFrames(t *testing.T) {
	local, remote := newFakeSocket(), newFakeSocket()
	r, _ := newRelay(&fakeDialer{socket: remote}, time.Minute)

	done := serve(r, local)
	local.in <- inbound{kind: 2, data: []byte{0x01}}
	local.push("text")

	assert.Eventually(t, func() bool {
		return len(remote.messages()) == 1
	}, time.Second, 5*time.Millisecond)

	local.disconnect()
	require.NoError(t, wait(t, done))
	assert.Equal(t, []string{"text"}, remote.messages())
}

func TestRelay_WriteFailureTearsDown(t *testing.T) {
	local, remote := newFakeSocket(), newFakeSocket()
	remote.writeErr = errors.New("broken pipe")
	r, _ := newRelay(&fakeDialer{socket: remote}, time.Minute)

	done := serve(r, local)
	local.push("lost")

	require.NoError(t, wait(t, done))
	assert.Equal(t, 1, local.closes())
	assert.Equal(t, 1, remote.closes())
}

func TestRelay_CloseErrorsAreSwallowed(t *testing.T) {
	local, remote := newFakeSocket(), newFakeSocket()
	local.closeErr = errors.New("already closed")
	remote.closeErr = errors.New("already closed")
	r, rec := newRelay(&fakeDialer{socket: remote}, time.Minute)

	done := serve(r, local)
	local.disconnect()

	require.NoError(t, wait(t, done))
	states := rec.all()
	assert.Equal(t, entities.StateClosed, states[len(states)-1])
}

func TestRelay_PingsIdleSources(t *testing.T) {
	local, remote := newFakeSocket(), newFakeSocket()
	r, _ := newRelay(&fakeDialer{socket: remote}, 10*time.Millisecond)

	done := serve(r, local)

	assert.Eventually(t, func() bool {
		return local.pingCount() > 0 && remote.pingCount() > 0
	}, time.Second, 5*time.Millisecond)

	local.disconnect()
	require.NoError(t, wait(t, done))
}

func TestRelay_ShutdownClosesActivePairings(t *testing.T) {
	r, _ := newRelay(nil, time.Minute)

	var pairs [2][2]*fakeSocket
	var dones []<-chan error
	for i := range pairs {
		local, remote := newFakeSocket(), newFakeSocket()
		pairs[i] = [2]*fakeSocket{local, remote}
		r.dialer = &fakeDialer{socket: remote}
		dones = append(dones, serve(r, local))
		assert.Eventually(t, func() bool { return r.Active() == i+1 }, time.Second, 5*time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	for i, done := range dones {
		require.NoError(t, wait(t, done))
		assert.Equal(t, 1, pairs[i][0].closes())
		assert.Equal(t, 1, pairs[i][1].closes())
	}
	assert.Equal(t, 0, r.Active())
}

func TestPairing_UpstreamURL(t *testing.T) {
	p := entities.Pairing{ChatPeer: -1001234, UserPeer: 42}
	assert.Equal(t, "ws://bots:1111/ws/-1001234/42", p.UpstreamURL("ws://bots:1111/ws/{chat_peer}/{user_peer}"))
}
