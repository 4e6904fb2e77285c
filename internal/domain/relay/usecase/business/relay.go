package business

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/entities"
	relayerrors "github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/errors"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/metrics"
)

// Relay pairs local sockets with upstream sockets. Each pairing is
// independent: a transport failure tears down that pairing only.
type Relay struct {
	dialer         deps.Dialer
	upstream       string
	connectTimeout time.Duration
	pollTimeout    time.Duration
	writeTimeout   time.Duration
	metrics        *metrics.Metrics
	logger         zerolog.Logger

	// lifetime of the relay, cancelled by Shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	active atomic.Int64

	// test hook
	onTransition func(entities.Pairing, entities.State)
}

// NewRelay creates a relay dialing the configured upstream template
func NewRelay(dialer deps.Dialer, cfg *config.RelayConfig, m *metrics.Metrics, logger zerolog.Logger) *Relay {
	ctx, cancel := context.WithCancel(context.Background())

	return &Relay{
		dialer:         dialer,
		upstream:       cfg.UpstreamURL,
		connectTimeout: cfg.ConnectTimeout,
		pollTimeout:    cfg.PollTimeout,
		writeTimeout:   cfg.WriteTimeout,
		metrics:        m,
		logger:         logger.With().Str("component", "relay").Logger(),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Serve runs one pairing: Connecting, Relaying, Closing, Closed. A failed
// connect goes straight to Closed after telling the local side why.
func (r *Relay) Serve(ctx context.Context, local deps.Socket, pairing entities.Pairing) error {
	r.wg.Add(1)
	defer r.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.ctx, cancel)
	defer stop()

	s := &session{
		pairing: pairing,
		local:   local,
		logger: r.logger.With().
			Int64("chat_peer", pairing.ChatPeer).
			Int64("user_peer", pairing.UserPeer).
			Logger(),
	}
	r.transition(s, entities.StateConnecting)

	remote, err := r.connect(ctx, pairing)
	if err != nil {
		r.reject(s, err)
		s.closeLocal()
		r.transition(s, entities.StateClosed)
		return err
	}
	s.remote = remote

	r.transition(s, entities.StateRelaying)
	r.metrics.RelayOpened()
	r.active.Add(1)
	start := time.Now()

	var loops sync.WaitGroup
	loops.Add(2)
	go func() {
		defer loops.Done()
		defer cancel()
		r.forward(ctx, s, local, remote, entities.DirectionUpstream)
	}()
	go func() {
		defer loops.Done()
		defer cancel()
		r.forward(ctx, s, remote, local, entities.DirectionDownstream)
	}()
	loops.Wait()

	r.transition(s, entities.StateClosing)
	s.closeLocal()
	s.closeRemote()
	s.readers.Wait()

	r.active.Add(-1)
	r.metrics.RelayClosed(time.Since(start).Seconds())
	r.transition(s, entities.StateClosed)
	return nil
}

// Active returns the number of pairings currently relaying
func (r *Relay) Active() int {
	return int(r.active.Load())
}

// Shutdown cancels every pairing and waits until they are closed
func (r *Relay) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info().Msg("All relays closed")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("relay shutdown: %w", ctx.Err())
	}
}

func (r *Relay) connect(ctx context.Context, pairing entities.Pairing) (deps.Socket, error) {
	dialCtx, cancel := context.WithTimeout(ctx, r.connectTimeout)
	defer cancel()

	url := pairing.UpstreamURL(r.upstream)
	remote, err := r.dialer.Dial(dialCtx, url)
	if err == nil {
		return remote, nil
	}

	var netErr net.Error
	if errors.Is(dialCtx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		r.metrics.RecordRelayFailure("timeout")
		return nil, fmt.Errorf("%w: %w", relayerrors.ErrRelayTimeout, err)
	}
	r.metrics.RecordRelayFailure("unavailable")
	return nil, fmt.Errorf("%w: %w", relayerrors.ErrRelayUnavailable, err)
}

// reject tells the local side why the pairing could not start
func (r *Relay) reject(s *session, err error) {
	reason := relayerrors.ErrRelayUnavailable.Error()
	if errors.Is(err, relayerrors.ErrRelayTimeout) {
		reason = relayerrors.ErrRelayTimeout.Error()
	}
	s.logger.Error().Err(err).Msg("Failed to connect upstream")

	_ = s.local.SetWriteDeadline(time.Now().Add(r.writeTimeout))
	if werr := s.local.WriteMessage(entities.TextMessage, []byte(reason)); werr != nil {
		s.logger.Debug().Err(werr).Msg("Failed to report connect failure")
	}
}

// forward copies text frames from one socket to the other until either
// side fails or ctx is done. Idle sources are pinged every poll interval.
func (r *Relay) forward(ctx context.Context, s *session, from, to deps.Socket, direction string) {
	frames := s.read(ctx, from)
	idle := time.NewTicker(r.pollTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if f.err != nil {
				s.logger.Debug().Err(f.err).Str("direction", direction).Msg("Source closed")
				return
			}
			if f.kind != entities.TextMessage {
				continue
			}

			_ = to.SetWriteDeadline(time.Now().Add(r.writeTimeout))
			if err := to.WriteMessage(entities.TextMessage, f.data); err != nil {
				r.metrics.RecordRelayFailure("write")
				s.logger.Warn().Err(err).Str("direction", direction).Msg("Failed to forward frame")
				return
			}
			r.metrics.RecordRelayFrame(direction)
			idle.Reset(r.pollTimeout)
		case <-idle.C:
			if err := from.WriteControl(entities.PingMessage, nil, time.Now().Add(r.writeTimeout)); err != nil {
				s.logger.Debug().Err(err).Str("direction", direction).Msg("Source stopped answering")
				return
			}
		}
	}
}

func (r *Relay) transition(s *session, state entities.State) {
	s.logger.Debug().Str("state", state.String()).Msg("Relay state changed")
	if r.onTransition != nil {
		r.onTransition(s.pairing, state)
	}
}

type frame struct {
	kind int
	data []byte
	err  error
}

// session is the state of a single pairing
type session struct {
	pairing entities.Pairing
	local   deps.Socket
	remote  deps.Socket
	logger  zerolog.Logger

	localOnce  sync.Once
	remoteOnce sync.Once
	readers    sync.WaitGroup
}

// read pumps frames from sock until it fails. The pump stops delivering
// once ctx is done and exits when the socket is closed.
func (s *session) read(ctx context.Context, sock deps.Socket) <-chan frame {
	out := make(chan frame)

	s.readers.Add(1)
	go func() {
		defer s.readers.Done()
		defer close(out)

		for {
			kind, data, err := sock.ReadMessage()
			select {
			case out <- frame{kind: kind, data: data, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

func (s *session) closeLocal() {
	s.localOnce.Do(func() {
		if err := s.local.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close local socket")
		}
	})
}

func (s *session) closeRemote() {
	if s.remote == nil {
		return
	}
	s.remoteOnce.Do(func() {
		if err := s.remote.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close upstream socket")
		}
	})
}

var _ deps.Relay = (*Relay)(nil)
