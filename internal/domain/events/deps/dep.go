package deps

import (
	"context"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/entities"
)

// Listener collects inbound message notifications from pooled connections
type Listener interface {
	// StartListening subscribes every pooled connection that is not yet
	// subscribed and returns how many subscriptions it created
	StartListening(ctx context.Context) int
	// Listening reports whether StartListening has been called
	Listening() bool
	// PullEvents drains the pending buffer
	PullEvents() []entities.Event
	// Requeue puts events that could not be published back at the front of
	// the buffer
	Requeue(events []entities.Event)
}

// Publisher maps domain events to integration events and publishes them
type Publisher interface {
	// Publish returns the events that were not sent and may be retried
	Publish(ctx context.Context, events []entities.Event) ([]entities.Event, error)
}

// Events is the command surface of the events domain
type Events interface {
	StartListening(ctx context.Context) (*entities.ListeningReport, error)
	Flush(ctx context.Context) (int, error)
}

// MessageIDCache tracks the newest message ID per account and peer
type MessageIDCache interface {
	Get(account, peer string) (int, bool)
	// SetIfGreater records messageID and reports whether it is newer than
	// anything seen for the peer
	SetIfGreater(account, peer string, messageID int) bool
}
