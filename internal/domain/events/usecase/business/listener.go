package business

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/entities"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/session-service/internal/utils"
)

// Listener subscribes pooled connections to inbound messages and buffers
// the resulting events until they are pulled. Subscriptions are owned by
// the pooled connection and die with it.
type Listener struct {
	pool    domain.ConnectionPool
	seen    deps.MessageIDCache
	metrics *metrics.Metrics
	logger  zerolog.Logger

	listening atomic.Bool

	mu      sync.Mutex
	pending []entities.Event
}

// NewListener creates a listener over pool. Messages whose ID is not newer
// than the last one seen for the same account and peer are dropped.
func NewListener(pool domain.ConnectionPool, seen deps.MessageIDCache, m *metrics.Metrics, logger zerolog.Logger) *Listener {
	return &Listener{
		pool:    pool,
		seen:    seen,
		metrics: m,
		logger:  logger.With().Str("component", "event_listener").Logger(),
	}
}

// StartListening attaches a subscription to every pooled connection that
// has none. Repeated calls only cover connections pooled since.
func (l *Listener) StartListening(ctx context.Context) int {
	l.listening.Store(true)

	attached := 0
	for _, pc := range l.pool.All() {
		account := pc.Phone().String()
		masked := utils.MaskPhoneNumber(account)
		if pc.Attach(func(conn domain.Connection) domain.Subscription {
			return conn.OnNewMessage(l.receive(account, masked))
		}) {
			attached++
			l.logger.Info().Str("phone", masked).Msg("Subscribed to new messages")
		}
	}
	return attached
}

// Listening reports whether StartListening has been called
func (l *Listener) Listening() bool {
	return l.listening.Load()
}

func (l *Listener) receive(account, masked string) func(ctx context.Context, msg domain.Message) {
	return func(ctx context.Context, msg domain.Message) {
		if !l.seen.SetIfGreater(account, msg.PeerID, msg.ID) {
			l.logger.Debug().
				Str("phone", masked).
				Int("message_id", msg.ID).
				Str("peer_id", msg.PeerID).
				Msg("Skipping replayed message")
			return
		}

		event := entities.NewTelegramMessageReceived(msg)

		l.mu.Lock()
		l.pending = append(l.pending, event)
		l.mu.Unlock()

		l.metrics.RecordEventReceived()
		l.logger.Debug().
			Str("phone", masked).
			Int("message_id", msg.ID).
			Str("peer_id", msg.PeerID).
			Msg("Message received")
	}
}

// PullEvents returns and clears the pending events
func (l *Listener) PullEvents() []entities.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := l.pending
	l.pending = nil
	return events
}

// Requeue prepends events to the pending buffer so they keep their order
// ahead of anything received since they were pulled
func (l *Listener) Requeue(events []entities.Event) {
	if len(events) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = append(append(make([]entities.Event, 0, len(events)+len(l.pending)), events...), l.pending...)
}

// Pending returns the number of buffered events
func (l *Listener) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

var _ deps.Listener = (*Listener)(nil)
