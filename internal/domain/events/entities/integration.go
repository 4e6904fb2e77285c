package entities

import (
	"time"

	"github.com/google/uuid"
)

const (
	// TelegramExchange receives every telegram integration event
	TelegramExchange = "telegram"

	// MessageTypeEvent tags broker messages carrying an integration event
	MessageTypeEvent = "event"
)

// IntegrationEvent is the header shared by every published event
type IntegrationEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TelegramMessageReceivedV1 is the wire form of TelegramMessageReceived
type TelegramMessageReceivedV1 struct {
	IntegrationEvent

	ID            int       `json:"id"`
	Message       string    `json:"message"`
	Date          time.Time `json:"date"`
	PeerID        string    `json:"peer_id"`
	FromID        *string   `json:"from_id"`
	IsOutgoing    *bool     `json:"is_outgoing"`
	MediaType     *string   `json:"media_type"`
	ReplyToMsgID  *int      `json:"reply_to_msg_id"`
	ForwardedFrom *string   `json:"forwarded_from"`
}

// Envelope is what the broker carries: the event serialized into Data
type Envelope struct {
	ID          string `json:"id"`
	Data        string `json:"data"`
	MessageType string `json:"message_type"`
}
