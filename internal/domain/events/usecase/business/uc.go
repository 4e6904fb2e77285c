package business

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/entities"
)

// UseCase drives the listener and the publisher together: every path that
// makes the listener collect events also drains it
type UseCase struct {
	pool      domain.ConnectionPool
	listener  deps.Listener
	publisher deps.Publisher
	logger    zerolog.Logger
}

// NewUseCase creates a new events use case
func NewUseCase(pool domain.ConnectionPool, listener deps.Listener, publisher deps.Publisher, logger zerolog.Logger) *UseCase {
	return &UseCase{
		pool:      pool,
		listener:  listener,
		publisher: publisher,
		logger:    logger.With().Str("component", "events").Logger(),
	}
}

// StartListening subscribes every pooled connection and publishes whatever
// is already buffered
func (u *UseCase) StartListening(ctx context.Context) (*entities.ListeningReport, error) {
	attached := u.listener.StartListening(ctx)

	published, err := u.Flush(ctx)
	report := &entities.ListeningReport{
		Pooled:    len(u.pool.All()),
		Attached:  attached,
		Published: published,
	}

	u.logger.Info().
		Int("pooled", report.Pooled).
		Int("attached", report.Attached).
		Int("published", report.Published).
		Msg("Listening started")
	return report, err
}

// Flush drains the listener and publishes the events. Events the publisher
// could not send go back to the listener for the next flush. It returns how
// many events were published.
func (u *UseCase) Flush(ctx context.Context) (int, error) {
	events := u.listener.PullEvents()
	if len(events) == 0 {
		return 0, nil
	}

	unsent, err := u.publisher.Publish(ctx, events)
	if len(unsent) > 0 {
		u.listener.Requeue(unsent)
	}
	if err != nil {
		u.logger.Error().
			Err(err).
			Int("events", len(events)).
			Int("requeued", len(unsent)).
			Msg("Failed to publish events")
	}
	return len(events) - len(unsent), err
}

var _ deps.Events = (*UseCase)(nil)
