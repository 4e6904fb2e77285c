package cache

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/deps"
)

// messageIDCache remembers the highest message ID seen per (account, peer)
// so messages replayed by gap recovery after a reconnect are not published twice
type messageIDCache struct {
	data   map[string]int
	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewMessageIDCache creates a new MessageIDCache instance
func NewMessageIDCache(logger zerolog.Logger) deps.MessageIDCache {
	return &messageIDCache{
		data:   make(map[string]int),
		logger: logger.With().Str("component", "message_id_cache").Logger(),
	}
}

// Get returns the cached message ID for a peer of an account
func (c *messageIDCache) Get(account, peer string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messageID, exists := c.data[key(account, peer)]
	return messageID, exists
}

// SetIfGreater atomically updates the cache only if messageID > current
func (c *messageIDCache) SetIfGreater(account, peer string, messageID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(account, peer)
	current, exists := c.data[k]
	if exists && messageID <= current {
		return false
	}

	c.data[k] = messageID
	return true
}

func key(account, peer string) string {
	return account + "|" + peer
}
