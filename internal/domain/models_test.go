package domain

import (
	"slices"
	"testing"
)

func TestDialogKeys(t *testing.T) {
	tests := []struct {
		name   string
		dialog Dialog
		want   []string
	}{
		{
			name:   "user with username",
			dialog: Dialog{PeerID: 5, PeerType: PeerUser, Username: "Alice"},
			want:   []string{"5", "user:5", "alice"},
		},
		{
			name:   "channel",
			dialog: Dialog{PeerID: 1234, PeerType: PeerChannel},
			want:   []string{"1234", "channel:1234", "-1001234"},
		},
		{
			name:   "basic group",
			dialog: Dialog{PeerID: 77, PeerType: PeerChat},
			want:   []string{"77", "chat:77", "-77"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialog.Keys(); !slices.Equal(got, tt.want) {
				t.Errorf("Keys() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDialogMatches(t *testing.T) {
	channel := Dialog{PeerID: 1234, PeerType: PeerChannel, Username: "NewsRoom"}

	for _, entity := range []string{"1234", "channel:1234", "-1001234", "@newsroom", " NEWSROOM ", "https://t.me/NewsRoom"} {
		if !channel.Matches(entity) {
			t.Errorf("Matches(%q) = false, want true", entity)
		}
	}
	for _, entity := range []string{"", "-1234", "chat:1234", "user:1234", "other"} {
		if channel.Matches(entity) {
			t.Errorf("Matches(%q) = true, want false", entity)
		}
	}
}
