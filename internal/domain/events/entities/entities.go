package entities

import (
	"time"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
)

// Event is a domain event raised inside the service
type Event interface {
	EventName() string
}

// TelegramMessageReceived is raised for every inbound message notification
// on a pooled connection
type TelegramMessageReceived struct {
	ID            int
	Message       string
	Date          time.Time
	PeerID        string
	FromID        string
	IsOutgoing    bool
	MediaType     string
	ReplyToMsgID  int
	ForwardedFrom string
}

func (TelegramMessageReceived) EventName() string {
	return "TelegramMessageReceived"
}

// NewTelegramMessageReceived converts a provider-neutral message
func NewTelegramMessageReceived(msg domain.Message) TelegramMessageReceived {
	return TelegramMessageReceived{
		ID:            msg.ID,
		Message:       msg.Text,
		Date:          msg.Date,
		PeerID:        msg.PeerID,
		FromID:        msg.FromID,
		IsOutgoing:    msg.Out,
		MediaType:     msg.MediaType,
		ReplyToMsgID:  msg.ReplyToMsgID,
		ForwardedFrom: msg.ForwardedFrom,
	}
}

// ListeningReport is the result of a StartListening command
type ListeningReport struct {
	Pooled    int `json:"pooled"`
	Attached  int `json:"attached"`
	Published int `json:"published"`
}
