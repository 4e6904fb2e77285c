package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/entities"
	eventerrors "github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/errors"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/metrics"
)

// outbound is an integration event ready for the broker
type outbound struct {
	source     entities.Event
	eventID    uuid.UUID
	routingKey string
	payload    any
}

// Publisher maps domain events to their integration form and hands them to
// the broker. The exchange is declared on first use.
type Publisher struct {
	broker   domain.EventBroker
	exchange string
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() uuid.UUID

	declareMu sync.Mutex
	declared  bool
}

// NewPublisher creates a publisher targeting exchange
func NewPublisher(broker domain.EventBroker, exchange string, m *metrics.Metrics, logger zerolog.Logger) *Publisher {
	if exchange == "" {
		exchange = entities.TelegramExchange
	}
	return &Publisher{
		broker:   broker,
		exchange: exchange,
		metrics:  m,
		logger:   logger.With().Str("component", "event_publisher").Logger(),
		now:      time.Now,
		newID:    uuid.New,
	}
}

// Publish maps every event before sending any, so an unmapped event fails
// the whole batch. Broker failures do not stop the remaining events and are
// returned joined. The returned events were not sent and may be retried;
// unmapped events are never among them.
func (p *Publisher) Publish(ctx context.Context, events []entities.Event) ([]entities.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	start := time.Now()

	batch := make([]outbound, 0, len(events))
	var unmapped []error
	for _, event := range events {
		out, err := p.toIntegration(event)
		if err != nil {
			p.metrics.RecordPublishError("unmapped")
			p.logger.Error().Err(err).Msg("Dropping unmapped event")
			unmapped = append(unmapped, err)
			continue
		}
		out.source = event
		batch = append(batch, out)
	}
	if len(unmapped) > 0 {
		return sources(batch), errors.Join(unmapped...)
	}

	if err := p.declare(ctx); err != nil {
		p.metrics.RecordPublishError("declare")
		return sources(batch), err
	}

	var (
		errs   []error
		unsent []entities.Event
	)
	for _, out := range batch {
		if err := p.send(ctx, out); err != nil {
			p.metrics.RecordPublishError("publish")
			p.logger.Error().Err(err).Str("event_id", out.eventID.String()).Msg("Failed to publish event")
			errs = append(errs, err)
			unsent = append(unsent, out.source)
		}
	}

	published := len(batch) - len(unsent)
	p.metrics.RecordEventsPublished(published, time.Since(start).Seconds())
	p.logger.Debug().Int("published", published).Int("failed", len(errs)).Msg("Events published")
	return unsent, errors.Join(errs...)
}

func sources(batch []outbound) []entities.Event {
	out := make([]entities.Event, 0, len(batch))
	for _, o := range batch {
		out = append(out, o.source)
	}
	return out
}

func (p *Publisher) declare(ctx context.Context) error {
	p.declareMu.Lock()
	defer p.declareMu.Unlock()

	if p.declared {
		return nil
	}
	if err := p.broker.DeclareExchange(ctx, p.exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	p.declared = true
	return nil
}

func (p *Publisher) send(ctx context.Context, out outbound) error {
	data, err := json.Marshal(out.payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	body, err := json.Marshal(entities.Envelope{
		ID:          out.eventID.String(),
		Data:        string(data),
		MessageType: entities.MessageTypeEvent,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return p.broker.Publish(ctx, p.exchange, out.routingKey, body)
}

func (p *Publisher) toIntegration(event entities.Event) (outbound, error) {
	header := entities.IntegrationEvent{
		EventID:    p.newID(),
		OccurredAt: p.now().UTC(),
	}

	switch e := event.(type) {
	case entities.TelegramMessageReceived:
		header.EventType = e.EventName()
		return outbound{
			eventID:    header.EventID,
			routingKey: e.EventName(),
			payload:    telegramMessageReceivedV1(header, e),
		}, nil
	case *entities.TelegramMessageReceived:
		if e != nil {
			return p.toIntegration(*e)
		}
	}
	return outbound{}, fmt.Errorf("%w: %T", eventerrors.ErrUnmappedEvent, event)
}

func telegramMessageReceivedV1(header entities.IntegrationEvent, e entities.TelegramMessageReceived) entities.TelegramMessageReceivedV1 {
	out := entities.TelegramMessageReceivedV1{
		IntegrationEvent: header,
		ID:               e.ID,
		Message:          e.Message,
		Date:             e.Date,
		PeerID:           e.PeerID,
		IsOutgoing:       &e.IsOutgoing,
	}
	if e.FromID != "" {
		out.FromID = &e.FromID
	}
	if e.MediaType != "" {
		out.MediaType = &e.MediaType
	}
	if e.ReplyToMsgID != 0 {
		out.ReplyToMsgID = &e.ReplyToMsgID
	}
	if e.ForwardedFrom != "" {
		out.ForwardedFrom = &e.ForwardedFrom
	}
	return out
}

var _ deps.Publisher = (*Publisher)(nil)
