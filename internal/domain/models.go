package domain

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
)

// AccountCredential is the durable record needed to rebuild a connection
type AccountCredential struct {
	SessionID   phone.Number
	APIID       int
	APIHash     string
	SessionBlob []byte
}

// Profile is the identity of a signed-in account
type Profile struct {
	ID        int64  `json:"id"`
	Phone     string `json:"phone"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Bot       bool   `json:"bot"`
	Premium   bool   `json:"premium"`
}

// PeerType tags the kind of remote entity a dialog points at
type PeerType string

const (
	PeerUser    PeerType = "user"
	PeerChat    PeerType = "chat"
	PeerChannel PeerType = "channel"
)

// Dialog is one conversation in the account's chat list
type Dialog struct {
	PeerID       int64    `json:"peer_id"`
	PeerType     PeerType `json:"peer_type"`
	Title        string   `json:"title"`
	Username     string   `json:"username,omitempty"`
	UnreadCount  int      `json:"unread_count"`
	TopMessageID int      `json:"top_message_id"`
	Pinned       bool     `json:"pinned"`
}

// Keys returns every lookup key the dialog answers to: the bare id, the
// typed "<type>:<id>" form, the -100<id> and -<id> forms of channels and
// chats, and the lowercased username
func (d Dialog) Keys() []string {
	id := strconv.FormatInt(d.PeerID, 10)
	keys := []string{id, string(d.PeerType) + ":" + id}
	switch d.PeerType {
	case PeerChannel:
		keys = append(keys, "-100"+id)
	case PeerChat:
		keys = append(keys, "-"+id)
	}
	if d.Username != "" {
		keys = append(keys, strings.ToLower(d.Username))
	}
	return keys
}

// Matches reports whether entity refers to the dialog
func (d Dialog) Matches(entity string) bool {
	key := PeerKey(entity)
	return key != "" && slices.Contains(d.Keys(), key)
}

// PeerKey normalizes an entity reference ("@name", a t.me link, an id or
// "<type>:<id>") into the form Dialog.Keys produces
func PeerKey(entity string) string {
	key := strings.TrimSpace(entity)
	key = strings.TrimPrefix(key, "https://t.me/")
	key = strings.TrimPrefix(key, "@")
	return strings.ToLower(key)
}

// PhotoDescriptor is the metadata tuple that identifies remote media
type PhotoDescriptor struct {
	ID            int64  `json:"id"`
	AccessHash    int64  `json:"access_hash"`
	DCID          int    `json:"dc_id"`
	FileReference []byte `json:"file_reference"`
	MimeType      string `json:"mime_type"`
	ThumbSize     string `json:"thumb_size,omitempty"`
}

// Message is a provider-neutral chat message
type Message struct {
	ID            int              `json:"id"`
	Text          string           `json:"message"`
	Date          time.Time        `json:"date"`
	PeerID        string           `json:"peer_id"`
	FromID        string           `json:"from_id,omitempty"`
	Out           bool             `json:"is_outgoing"`
	MediaType     string           `json:"media_type,omitempty"`
	ReplyToMsgID  int              `json:"reply_to_msg_id,omitempty"`
	ForwardedFrom string           `json:"forwarded_from,omitempty"`
	Photo         *PhotoDescriptor `json:"photo,omitempty"`
}
