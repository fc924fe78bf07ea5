package core

import (
	"testing"
	"time"
)

func TestNewItem(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := NewItem("entry-1", SourceRSS, "Example Feed", "hello", "https://example.com/post", createdAt)

	if item.ID != "entry-1" {
		t.Errorf("Expected ID to be 'entry-1', got %s", item.ID)
	}
	if item.Source != SourceRSS {
		t.Errorf("Expected Source to be %s, got %s", SourceRSS, item.Source)
	}
	if item.AuthorUsername != "Example Feed" || item.AuthorDisplayName != "Example Feed" {
		t.Errorf("Expected both author fields to be 'Example Feed', got %s / %s", item.AuthorUsername, item.AuthorDisplayName)
	}
	if item.Metadata == nil {
		t.Fatal("Expected Metadata to be non-nil")
	}
	if len(item.Metadata) != 0 {
		t.Errorf("Expected empty Metadata, got %v", item.Metadata)
	}
	if item.LikeCount != 0 || item.ReplyCount != 0 {
		t.Errorf("Expected zero engagement counters, got %d / %d", item.LikeCount, item.ReplyCount)
	}
	if !item.CreatedAt.Equal(createdAt) {
		t.Errorf("Expected CreatedAt %v, got %v", createdAt, item.CreatedAt)
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt float64
		want      bool
	}{
		{"no expiry recorded", 0, false},
		{"expires in the future", float64(now.Unix()) + 3600, false},
		{"expired in the past", float64(now.Unix()) - 1, true},
		{"expires exactly now", float64(now.Unix()), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := Token{Service: "youtube", ExpiresAt: tt.expiresAt}
			if got := token.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFeedURL(t *testing.T) {
	got := FeedURL("UC123abc")
	want := "https://www.youtube.com/feeds/videos.xml?channel_id=UC123abc"
	if got != want {
		t.Errorf("FeedURL() = %s, want %s", got, want)
	}
}
