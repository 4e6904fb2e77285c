package cache

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestMessageIDCache_SetIfGreater(t *testing.T) {
	c := NewMessageIDCache(zerolog.Nop())

	steps := []struct {
		account string
		peer    string
		id      int
		want    bool
	}{
		{"79991234567", "channel:1", 10, true},
		{"79991234567", "channel:1", 10, false},
		{"79991234567", "channel:1", 9, false},
		{"79991234567", "channel:1", 11, true},
		{"79991234567", "user:5", 3, true},
		{"79997654321", "channel:1", 1, true},
	}

	for i, s := range steps {
		if got := c.SetIfGreater(s.account, s.peer, s.id); got != s.want {
			t.Errorf("step %d: SetIfGreater(%s, %s, %d) = %v, want %v", i, s.account, s.peer, s.id, got, s.want)
		}
	}

	if id, ok := c.Get("79991234567", "channel:1"); !ok || id != 11 {
		t.Errorf("Get() = %d, %v, want 11, true", id, ok)
	}
}
