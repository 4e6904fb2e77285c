package entities

import (
	"strconv"
	"strings"
)

// Frame kinds, numbered as the RFC 6455 opcodes
const (
	TextMessage = 1
	PingMessage = 9
)

// Forwarding directions
const (
	DirectionUpstream   = "upstream"
	DirectionDownstream = "downstream"
)

// State is the lifecycle stage of one relay pairing
type State int32

const (
	StateConnecting State = iota
	StateRelaying
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRelaying:
		return "relaying"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Pairing identifies the chat view a relay serves
type Pairing struct {
	ChatPeer int64
	UserPeer int64
}

// UpstreamURL fills the {chat_peer} and {user_peer} placeholders of template
func (p Pairing) UpstreamURL(template string) string {
	return strings.NewReplacer(
		"{chat_peer}", strconv.FormatInt(p.ChatPeer, 10),
		"{user_peer}", strconv.FormatInt(p.UserPeer, 10),
	).Replace(template)
}
