package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"sift/internal/core"
	"sift/internal/feeds"
)

type fakeTokens struct {
	token string
	err   error
	calls int
}

func (f *fakeTokens) AccessToken(ctx context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakeSubStore struct {
	saved  []core.Subscription
	errFor string
}

func (f *fakeSubStore) SaveSubscription(ctx context.Context, sub core.Subscription) error {
	if sub.ChannelID == f.errFor {
		return errors.New("disk full")
	}
	f.saved = append(f.saved, sub)
	return nil
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch", ""},
		{"https://example.com/watch?v=dQw4w9WgXcQ", ""},
		{"https://www.youtube.com/playlist?list=PL123", ""},
		{"not a url at all ://", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExtractVideoID(tt.url); got != tt.want {
			t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func newTestYouTube(tokens TokenProvider, subs SubscriptionStore, apiURL string) *YouTube {
	rss := NewRSS(feeds.NewManager(10*time.Second, ""), &fakeLookup{}, nil, nil, false, 1)
	y := NewYouTube(tokens, &fakeLookup{}, subs, rss, nil, 10*time.Second, 1)
	if apiURL != "" {
		y.apiBaseURL = apiURL
	}
	return y
}

func TestFetchSubscriptionsPaginated(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("Expected bearer token, got %q", got)
		}

		page := map[string]any{
			"items": []map[string]any{{
				"snippet": map[string]any{
					"title":       "Channel One",
					"publishedAt": "2024-01-01T00:00:00Z",
					"resourceId":  map[string]string{"channelId": "UC-one"},
					"thumbnails":  map[string]any{"default": map[string]string{"url": "https://i.example/one.jpg"}},
				},
			}},
			"nextPageToken": "page-2",
		}
		if r.URL.Query().Get("pageToken") == "page-2" {
			page = map[string]any{
				"items": []map[string]any{{
					"snippet": map[string]any{
						"title":      "Channel Two",
						"resourceId": map[string]string{"channelId": "UC-two"},
					},
				}},
			}
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	y := newTestYouTube(&fakeTokens{token: "token-1"}, &fakeSubStore{}, server.URL+"/subscriptions?mine=true&part=snippet")
	subs, err := y.fetchSubscriptions(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("fetchSubscriptions failed: %v", err)
	}

	if requests.Load() != 2 {
		t.Errorf("Expected 2 page requests, got %d", requests.Load())
	}
	if len(subs) != 2 {
		t.Fatalf("Expected 2 subscriptions, got %d", len(subs))
	}
	if subs[0].ChannelID != "UC-one" || subs[1].ChannelID != "UC-two" {
		t.Errorf("Unexpected channel ids: %s, %s", subs[0].ChannelID, subs[1].ChannelID)
	}
	if subs[0].RSSURL != core.FeedURL("UC-one") {
		t.Errorf("Expected derived feed URL, got %q", subs[0].RSSURL)
	}
	if subs[0].ThumbnailURL != "https://i.example/one.jpg" {
		t.Errorf("Expected thumbnail carried over, got %q", subs[0].ThumbnailURL)
	}
}

func TestFetchSubscriptionsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer server.Close()

	y := newTestYouTube(&fakeTokens{token: "t"}, &fakeSubStore{}, server.URL+"/subscriptions?mine=true")
	_, err := y.fetchSubscriptions(context.Background(), "t")
	if err == nil {
		t.Fatal("Expected error for non-200 API response")
	}
}

func TestFetchSubscriptionsSkipsEmptyChannelID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"snippet": map[string]any{"title": "Ghost"}},
				{"snippet": map[string]any{"title": "Real", "resourceId": map[string]string{"channelId": "UC-real"}}},
			},
		})
	}))
	defer server.Close()

	y := newTestYouTube(&fakeTokens{token: "t"}, &fakeSubStore{}, server.URL+"/subscriptions?mine=true")
	subs, err := y.fetchSubscriptions(context.Background(), "t")
	if err != nil {
		t.Fatalf("fetchSubscriptions failed: %v", err)
	}
	if len(subs) != 1 || subs[0].ChannelID != "UC-real" {
		t.Errorf("Expected only the entry with a channel id, got %v", subs)
	}
}

func TestGetRecentContentAuthFailureIsSilent(t *testing.T) {
	tokens := &fakeTokens{err: errors.New("authentication required")}
	var apiCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
	}))
	defer server.Close()

	y := newTestYouTube(tokens, &fakeSubStore{}, server.URL+"/subscriptions?mine=true")
	items, err := y.GetRecentContent(context.Background(), time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Expected auth failure to be absorbed, got error: %v", err)
	}
	if items != nil {
		t.Errorf("Expected no items, got %v", items)
	}
	if apiCalls.Load() != 0 {
		t.Errorf("Expected no API calls without a token, got %d", apiCalls.Load())
	}
}

func TestSyncSubscriptionsIsolatesFailures(t *testing.T) {
	store := &fakeSubStore{errFor: "UC-bad"}
	y := newTestYouTube(&fakeTokens{token: "t"}, store, "")

	y.syncSubscriptions(context.Background(), []core.Subscription{
		{ChannelID: "UC-good", ChannelTitle: "Good"},
		{ChannelID: "UC-bad", ChannelTitle: "Bad"},
		{ChannelID: "UC-also-good", ChannelTitle: "Also Good"},
	})

	if len(store.saved) != 2 {
		t.Errorf("Expected 2 saved subscriptions despite one failure, got %d", len(store.saved))
	}
}
