package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sift/internal/core"
	"sift/internal/enhance"
	"sift/internal/logger"
)

const subscriptionsAPIURL = "https://www.googleapis.com/youtube/v3/subscriptions?mine=true&part=snippet&maxResults=50"

// TokenProvider supplies a usable access token, refreshing or
// re-authenticating as needed.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// SubscriptionStore persists synced channel subscriptions.
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, sub core.Subscription) error
}

// YouTube resolves the authenticated user's channel subscriptions and
// ingests each channel's public video feed, enriched with transcripts.
type YouTube struct {
	tokens      TokenProvider
	store       ContentLookup
	subs        SubscriptionStore
	rss         *RSS
	enhancer    *enhance.Enhancer
	client      *http.Client
	concurrency int
	apiBaseURL  string
}

// NewYouTube creates the YouTube adapter. The RSS adapter is reused for
// entry-level feed parsing.
func NewYouTube(tokens TokenProvider, store ContentLookup, subs SubscriptionStore, rss *RSS, enhancer *enhance.Enhancer, timeout time.Duration, concurrency int) *YouTube {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &YouTube{
		tokens:      tokens,
		store:       store,
		subs:        subs,
		rss:         rss,
		enhancer:    enhancer,
		client:      &http.Client{Timeout: timeout},
		concurrency: concurrency,
		apiBaseURL:  subscriptionsAPIURL,
	}
}

// Name implements Source.
func (y *YouTube) Name() string { return core.SourceYouTube }

// GetRecentContent implements Source. A missing or unrecoverable token
// is terminal for this call: it logs and returns no items rather than
// propagating, so other sources in the run are unaffected.
func (y *YouTube) GetRecentContent(ctx context.Context, since time.Time) ([]core.Item, error) {
	token, err := y.tokens.AccessToken(ctx)
	if err != nil {
		logger.Error("YouTube authentication unavailable, skipping source", err)
		return nil, nil
	}

	subscriptions, err := y.fetchSubscriptions(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	y.syncSubscriptions(ctx, subscriptions)

	if len(subscriptions) == 0 {
		logger.Warn("no YouTube subscriptions found")
		return nil, nil
	}

	var items []core.Item
	for _, sub := range subscriptions {
		for _, item := range y.rss.collect(ctx, []string{sub.RSSURL}, since) {
			item.Source = core.SourceYouTube
			item.Metadata["video_id"] = ExtractVideoID(item.URL)
			item.Metadata["channel_id"] = sub.ChannelID
			items = append(items, item)
		}
	}

	y.enhanceAll(ctx, items)
	sortNewestFirst(items)
	logger.Info("YouTube ingestion collected items", "channels", len(subscriptions), "items", len(items))
	return items, nil
}

// fetchSubscriptions pages through the subscriptions API until the
// continuation token is exhausted.
func (y *YouTube) fetchSubscriptions(ctx context.Context, accessToken string) ([]core.Subscription, error) {
	var subscriptions []core.Subscription
	pageToken := ""

	for {
		requestURL := y.apiBaseURL
		if pageToken != "" {
			requestURL += "&pageToken=" + neturl.QueryEscape(pageToken)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := y.client.Do(req)
		if err != nil {
			return nil, err
		}

		var page struct {
			NextPageToken string `json:"nextPageToken"`
			Items         []struct {
				Snippet struct {
					Title       string `json:"title"`
					Description string `json:"description"`
					PublishedAt string `json:"publishedAt"`
					ResourceID  struct {
						ChannelID string `json:"channelId"`
					} `json:"resourceId"`
					Thumbnails struct {
						Default struct {
							URL string `json:"url"`
						} `json:"default"`
					} `json:"thumbnails"`
				} `json:"snippet"`
			} `json:"items"`
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("subscriptions API returned status %d", resp.StatusCode)
		}
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode subscriptions page: %w", err)
		}

		for _, item := range page.Items {
			channelID := strings.TrimSpace(item.Snippet.ResourceID.ChannelID)
			if channelID == "" {
				continue
			}
			subscriptions = append(subscriptions, core.Subscription{
				ChannelID:          channelID,
				ChannelTitle:       item.Snippet.Title,
				ChannelDescription: item.Snippet.Description,
				ThumbnailURL:       item.Snippet.Thumbnails.Default.URL,
				RSSURL:             core.FeedURL(channelID),
				SubscribedAt:       item.Snippet.PublishedAt,
			})
		}

		pageToken = strings.TrimSpace(page.NextPageToken)
		if pageToken == "" {
			break
		}
	}

	return subscriptions, nil
}

// syncSubscriptions refreshes the subscription store wholesale. Store
// failures are logged per channel and never interrupt ingestion.
func (y *YouTube) syncSubscriptions(ctx context.Context, subscriptions []core.Subscription) {
	saved := 0
	for _, sub := range subscriptions {
		if err := y.subs.SaveSubscription(ctx, sub); err != nil {
			logger.Error("failed to sync subscription", err, "channel_id", sub.ChannelID)
			continue
		}
		saved++
	}
	logger.Info("synced YouTube subscriptions", "saved", saved, "total", len(subscriptions))
}

// enhanceAll fetches transcripts with a bounded worker pool. Only items
// that survived the dedup gate reach this point, so no transcript is
// fetched twice for the same video across runs.
func (y *YouTube) enhanceAll(ctx context.Context, items []core.Item) {
	if y.enhancer == nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(y.concurrency)

	for i := range items {
		item := &items[i]
		g.Go(func() error {
			videoID, _ := item.Metadata["video_id"].(string)
			y.enhancer.EnhanceTranscript(gctx, item, videoID)
			return nil
		})
	}
	_ = g.Wait()
}

// ExtractVideoID parses the video id out of the accepted YouTube URL
// shapes (watch?v=, youtu.be/, /embed/, /v/). Unrecognized URLs yield
// "" rather than an error.
func ExtractVideoID(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := neturl.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))
	switch {
	case host == "youtu.be":
		return strings.Trim(parsed.Path, "/")
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		if strings.HasPrefix(parsed.Path, "/watch") {
			return parsed.Query().Get("v")
		}
		for _, prefix := range []string{"/embed/", "/v/"} {
			if strings.HasPrefix(parsed.Path, prefix) {
				return strings.Trim(strings.TrimPrefix(parsed.Path, prefix), "/")
			}
		}
	}
	return ""
}
