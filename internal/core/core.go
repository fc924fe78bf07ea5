// Package core defines the canonical data types shared across the ingestion pipeline.
package core

import "time"

// Known source tags for ingested items.
const (
	SourceRSS     = "rss"     // RSS/Atom feed entries
	SourceYouTube = "youtube" // Videos from subscribed YouTube channels
	SourceWebsite = "website" // Ad hoc single-URL ingestion
)

// Item is the normalized unit of ingested content. Every source adapter
// produces Items through NewItem so the shape is identical regardless of origin.
type Item struct {
	ID                string         `json:"id"`                  // Stable content identity; dedup key and store primary key
	Source            string         `json:"source"`              // One of the Source* constants
	AuthorUsername    string         `json:"author_username"`     // Attribution, typically the feed/channel title
	AuthorDisplayName string         `json:"author_display_name"` // Display form of the author
	Content           string         `json:"content"`             // Text body; enhancement appends, never replaces
	URL               string         `json:"url"`                 // Canonical link to the item
	CreatedAt         time.Time      `json:"created_at"`          // Original publication time (ingestion time if unknown)
	FetchedAt         time.Time      `json:"fetched_at"`          // First time the record was stored; not updated on re-save
	Metadata          map[string]any `json:"metadata"`            // Open source-specific fields; never nil
	LikeCount         int            `json:"like_count"`          // Engagement counter, 0 for RSS/YouTube
	ReplyCount        int            `json:"reply_count"`         // Engagement counter, 0 for RSS/YouTube
}

// NewItem builds an Item with the invariants every adapter relies on:
// a non-nil metadata map and zeroed engagement counters.
func NewItem(id, source, author, content, url string, createdAt time.Time) Item {
	return Item{
		ID:                id,
		Source:            source,
		AuthorUsername:    author,
		AuthorDisplayName: author,
		Content:           content,
		URL:               url,
		CreatedAt:         createdAt,
		Metadata:          map[string]any{},
	}
}

// Subscription is a synced YouTube channel subscription.
type Subscription struct {
	ChannelID          string    `json:"channel_id"`          // YouTube channel identifier; primary key
	ChannelTitle       string    `json:"channel_title"`       // Channel display name
	ChannelDescription string    `json:"channel_description"` // Channel description snippet
	ThumbnailURL       string    `json:"thumbnail_url"`       // Default thumbnail
	RSSURL             string    `json:"rss_url"`             // Per-channel public video feed
	SubscribedAt       string    `json:"subscribed_at"`       // Subscription time as reported by the API
	LastSynced         time.Time `json:"last_synced"`         // Last time this row was refreshed
}

// FeedURL derives the public video feed URL for a channel id.
func FeedURL(channelID string) string {
	return "https://www.youtube.com/feeds/videos.xml?channel_id=" + channelID
}

// Token is a persisted OAuth token for an external service.
type Token struct {
	Service      string    `json:"service"`       // Service discriminant, e.g. "youtube"; primary key
	AccessToken  string    `json:"access_token"`  // Bearer token for API calls
	RefreshToken string    `json:"refresh_token"` // Optional refresh token
	ExpiresAt    float64   `json:"expires_at"`    // Epoch seconds; 0 means unknown
	TokenType    string    `json:"token_type"`    // Usually "Bearer"
	Scope        string    `json:"scope"`         // Granted scopes
	CreatedAt    time.Time `json:"created_at"`    // First time the token was stored
	UpdatedAt    time.Time `json:"updated_at"`    // Last refresh or re-authentication
}

// Expired reports whether the token's expiry is known and has passed.
func (t Token) Expired(now time.Time) bool {
	if t.ExpiresAt == 0 {
		return false
	}
	return float64(now.Unix()) >= t.ExpiresAt
}
