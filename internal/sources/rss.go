package sources

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sift/internal/core"
	"sift/internal/enhance"
	"sift/internal/feeds"
	"sift/internal/logger"
)

// contentPreviewChars bounds the tag-stripped preview kept in metadata.
const contentPreviewChars = 500

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// junkURLPatterns are path segments whose items are never ingested.
var junkURLPatterns = []string{"/shorts/"}

// RSS pulls one or more RSS/Atom feeds and normalizes their entries.
type RSS struct {
	feeds       *feeds.Manager
	store       ContentLookup
	enhancer    *enhance.Enhancer
	urls        []string
	scrape      bool
	concurrency int
}

// NewRSS creates the RSS adapter. enhancer may be nil when article
// scraping is disabled.
func NewRSS(manager *feeds.Manager, store ContentLookup, enhancer *enhance.Enhancer, urls []string, scrape bool, concurrency int) *RSS {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &RSS{
		feeds:       manager,
		store:       store,
		enhancer:    enhancer,
		urls:        urls,
		scrape:      scrape,
		concurrency: concurrency,
	}
}

// Name implements Source.
func (r *RSS) Name() string { return core.SourceRSS }

// GetRecentContent implements Source: it parses all configured feeds,
// scrapes full article text for the uncached survivors, and returns
// them newest first.
func (r *RSS) GetRecentContent(ctx context.Context, since time.Time) ([]core.Item, error) {
	if len(r.urls) == 0 {
		logger.Warn("no RSS feeds configured")
		return nil, nil
	}

	items := r.collect(ctx, r.urls, since)

	if r.scrape && r.enhancer != nil {
		r.enhanceAll(ctx, items)
	}

	sortNewestFirst(items)
	logger.Info("RSS ingestion collected items", "feeds", len(r.urls), "items", len(items))
	return items, nil
}

// collect parses the given feed URLs into normalized, deduplicated,
// unenhanced items. A failing feed is logged and skipped; it never
// aborts the remaining feeds.
func (r *RSS) collect(ctx context.Context, urls []string, since time.Time) []core.Item {
	var items []core.Item
	for _, feedURL := range urls {
		feed, err := r.feeds.Fetch(ctx, feedURL)
		if err != nil {
			logger.Error("failed to fetch feed", err, "feed_url", feedURL)
			continue
		}

		for _, entry := range feed.Entries {
			item, ok := r.normalize(ctx, feed, entry, since)
			if !ok {
				continue
			}
			items = append(items, item)
		}
	}
	return items
}

// normalize turns one feed entry into an Item, applying the skip policy:
// too old, already cached, junk URL — in that order.
func (r *RSS) normalize(ctx context.Context, feed *feeds.Feed, entry feeds.Entry, since time.Time) (core.Item, bool) {
	id := entry.GUID
	if id == "" {
		id = entry.Link
	}
	if id == "" {
		logger.Warn("dropping entry with no id or link", "feed_url", feed.URL, "title", entry.Title)
		return core.Item{}, false
	}

	published := entry.Published
	if published.IsZero() {
		published = entry.Updated
	}
	// An entry with no timestamp at all is still ingested; only a known
	// timestamp older than the window excludes it.
	if !published.IsZero() && published.Before(since) {
		return core.Item{}, false
	}

	if existing, err := r.store.Get(ctx, id); err != nil {
		logger.Error("dedup lookup failed", err, "id", id)
	} else if existing != nil {
		logger.Debug("skipping cached entry", "id", id)
		return core.Item{}, false
	}

	if isJunkURL(entry.Link) {
		logger.Debug("skipping junk URL", "url", entry.Link)
		return core.Item{}, false
	}

	body := entry.Content
	if body == "" {
		body = entry.Summary
	}

	createdAt := published
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	item := core.NewItem(id, core.SourceRSS, feed.Title, body, entry.Link, createdAt)
	item.Metadata["feed_url"] = feed.URL
	item.Metadata["feed_title"] = feed.Title
	item.Metadata["entry_title"] = entry.Title
	item.Metadata["entry_author"] = entry.Author
	item.Metadata["entry_tags"] = entry.Categories
	item.Metadata["rss_content"] = body
	item.Metadata["content_preview"] = preview(body)
	return item, true
}

// enhanceAll scrapes full article text for each item with a bounded
// worker pool. Each item is touched by exactly one worker, so the
// per-item mutation needs no locking.
func (r *RSS) enhanceAll(ctx context.Context, items []core.Item) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range items {
		item := &items[i]
		g.Go(func() error {
			r.enhancer.EnhanceArticle(gctx, item)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; scrape failures are logged in place
}

func isJunkURL(url string) bool {
	for _, pattern := range junkURLPatterns {
		if strings.Contains(url, pattern) {
			return true
		}
	}
	return false
}

// preview strips HTML tags and truncates for the metadata preview field.
func preview(body string) string {
	text := strings.TrimSpace(tagPattern.ReplaceAllString(body, ""))
	if len(text) > contentPreviewChars {
		return text[:contentPreviewChars]
	}
	return text
}

// sortNewestFirst orders items by publication time descending, keeping
// the parse order stable for ties.
func sortNewestFirst(items []core.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
