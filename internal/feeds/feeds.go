// Package feeds provides RSS/Atom feed fetching and parsing.
package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

// Feed is a parsed feed with its normalized entries.
type Feed struct {
	URL         string
	Title       string
	Description string
	Link        string
	Entries     []Entry
}

// Entry is a single normalized feed entry. Timestamps are zero when the
// feed does not provide them.
type Entry struct {
	GUID       string
	Link       string
	Title      string
	Author     string
	Published  time.Time
	Updated    time.Time
	Content    string
	Summary    string
	Categories []string
}

// Manager fetches and parses feeds.
type Manager struct {
	client    *http.Client
	parser    *gofeed.Parser
	userAgent string
}

// NewManager creates a feed manager with the given fetch timeout and
// User-Agent header.
func NewManager(timeout time.Duration, userAgent string) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Manager{
		client:    &http.Client{Timeout: timeout},
		parser:    gofeed.NewParser(),
		userAgent: userAgent,
	}
}

// Fetch downloads and parses a feed from the given URL.
func (m *Manager) Fetch(ctx context.Context, feedURL string) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned status %d", feedURL, resp.StatusCode)
	}

	return m.parse(resp.Body, feedURL)
}

func (m *Manager) parse(r io.Reader, feedURL string) (*Feed, error) {
	parsed, err := m.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	feed := &Feed{
		URL:         feedURL,
		Title:       parsed.Title,
		Description: parsed.Description,
		Link:        parsed.Link,
		Entries:     make([]Entry, 0, len(parsed.Items)),
	}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		feed.Entries = append(feed.Entries, normalizeEntry(item))
	}
	return feed, nil
}

func normalizeEntry(item *gofeed.Item) Entry {
	entry := Entry{
		GUID:       item.GUID,
		Link:       item.Link,
		Title:      item.Title,
		Content:    item.Content,
		Summary:    item.Description,
		Categories: item.Categories,
		Published:  entryTime(item.PublishedParsed, item.Published),
		Updated:    entryTime(item.UpdatedParsed, item.Updated),
	}

	if item.Author != nil {
		entry.Author = item.Author.Name
	}
	if entry.Author == "" && len(item.Authors) > 0 && item.Authors[0] != nil {
		entry.Author = item.Authors[0].Name
	}
	return entry
}

// entryTime prefers gofeed's parsed timestamp and falls back to lenient
// parsing of the raw string for feeds with nonstandard date formats.
func entryTime(parsed *time.Time, raw string) time.Time {
	if parsed != nil {
		return parsed.UTC()
	}
	if raw == "" {
		return time.Time{}
	}
	if t, err := dateparse.ParseAny(raw); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
