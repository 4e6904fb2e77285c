package telegram

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gotd/td/tg"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
)

const defaultThumbSize = "y"

// formatPeer renders a peer reference as "<type>:<id>"
func formatPeer(peer tg.PeerClass) string {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return string(domain.PeerUser) + ":" + strconv.FormatInt(p.UserID, 10)
	case *tg.PeerChat:
		return string(domain.PeerChat) + ":" + strconv.FormatInt(p.ChatID, 10)
	case *tg.PeerChannel:
		return string(domain.PeerChannel) + ":" + strconv.FormatInt(p.ChannelID, 10)
	default:
		return ""
	}
}

// mediaTypeName returns the media constructor name, e.g. "MessageMediaPhoto"
func mediaTypeName(media tg.MessageMediaClass) string {
	name := media.TypeName()
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

func convertMessage(msg *tg.Message) domain.Message {
	out := domain.Message{
		ID:     msg.ID,
		Text:   msg.Message,
		Date:   time.Unix(int64(msg.Date), 0).UTC(),
		PeerID: formatPeer(msg.PeerID),
		Out:    msg.Out,
	}

	if from, ok := msg.GetFromID(); ok {
		out.FromID = formatPeer(from)
	}

	if reply, ok := msg.GetReplyTo(); ok {
		if header, ok := reply.(*tg.MessageReplyHeader); ok {
			if id, ok := header.GetReplyToMsgID(); ok {
				out.ReplyToMsgID = id
			}
		}
	}

	if fwd, ok := msg.GetFwdFrom(); ok {
		if from, ok := fwd.GetFromID(); ok {
			out.ForwardedFrom = formatPeer(from)
		} else if name, ok := fwd.GetFromName(); ok {
			out.ForwardedFrom = name
		}
	}

	if media, ok := msg.GetMedia(); ok {
		out.MediaType = mediaTypeName(media)
		if mp, ok := media.(*tg.MessageMediaPhoto); ok {
			out.Photo = photoDescriptor(mp)
		}
	}

	return out
}

func photoDescriptor(media *tg.MessageMediaPhoto) *domain.PhotoDescriptor {
	photoClass, ok := media.GetPhoto()
	if !ok {
		return nil
	}
	photo, ok := photoClass.AsNotEmpty()
	if !ok {
		return nil
	}
	return &domain.PhotoDescriptor{
		ID:            photo.ID,
		AccessHash:    photo.AccessHash,
		DCID:          photo.DCID,
		FileReference: photo.FileReference,
		MimeType:      "image/jpeg",
		ThumbSize:     largestThumb(photo.Sizes),
	}
}

// largestThumb picks the biggest progressive or plain size type
func largestThumb(sizes []tg.PhotoSizeClass) string {
	best, bestArea := "", 0
	for _, s := range sizes {
		switch size := s.(type) {
		case *tg.PhotoSize:
			if area := size.W * size.H; area > bestArea {
				best, bestArea = size.Type, area
			}
		case *tg.PhotoSizeProgressive:
			if area := size.W * size.H; area > bestArea {
				best, bestArea = size.Type, area
			}
		}
	}
	if best == "" {
		return defaultThumbSize
	}
	return best
}

func profileFromUser(u *tg.User) *domain.Profile {
	return &domain.Profile{
		ID:        u.ID,
		Phone:     u.Phone,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bot:       u.Bot,
		Premium:   u.Premium,
	}
}

// peerIndex maps dialog peers to the entities and input peers needed to
// address them later
type peerIndex struct {
	users    map[int64]*tg.User
	chats    map[int64]*tg.Chat
	channels map[int64]*tg.Channel
}

func newPeerIndex(users []tg.UserClass, chats []tg.ChatClass) peerIndex {
	idx := peerIndex{
		users:    make(map[int64]*tg.User, len(users)),
		chats:    make(map[int64]*tg.Chat),
		channels: make(map[int64]*tg.Channel),
	}
	for _, u := range users {
		if user, ok := u.AsNotEmpty(); ok {
			idx.users[user.ID] = user
		}
	}
	for _, c := range chats {
		switch chat := c.(type) {
		case *tg.Chat:
			idx.chats[chat.ID] = chat
		case *tg.Channel:
			idx.channels[chat.ID] = chat
		}
	}
	return idx
}

// dialog converts a dialog entry and returns its addressable input peer
func (idx peerIndex) dialog(d *tg.Dialog) (domain.Dialog, tg.InputPeerClass, bool) {
	out := domain.Dialog{
		UnreadCount:  d.UnreadCount,
		TopMessageID: d.TopMessage,
		Pinned:       d.Pinned,
	}

	switch p := d.Peer.(type) {
	case *tg.PeerUser:
		user, ok := idx.users[p.UserID]
		if !ok {
			return out, nil, false
		}
		out.PeerID, out.PeerType = user.ID, domain.PeerUser
		out.Title = strings.TrimSpace(user.FirstName + " " + user.LastName)
		out.Username = user.Username
		return out, &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}, true
	case *tg.PeerChat:
		chat, ok := idx.chats[p.ChatID]
		if !ok {
			return out, nil, false
		}
		out.PeerID, out.PeerType, out.Title = chat.ID, domain.PeerChat, chat.Title
		return out, &tg.InputPeerChat{ChatID: chat.ID}, true
	case *tg.PeerChannel:
		channel, ok := idx.channels[p.ChannelID]
		if !ok {
			return out, nil, false
		}
		out.PeerID, out.PeerType, out.Title = channel.ID, domain.PeerChannel, channel.Title
		out.Username = channel.Username
		return out, &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash}, true
	default:
		return out, nil, false
	}
}
