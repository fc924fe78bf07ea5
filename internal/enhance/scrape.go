// Package enhance provides best-effort augmentation of item bodies with
// scraped article text and video transcripts. Enhancement only ever
// appends to a body; the original extracted summary stays intact.
package enhance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"sift/internal/logger"
)

// DefaultMinChars is the minimum scraped length considered substantial
// enough to append.
const DefaultMinChars = 100

// Scraper fetches web pages and extracts their main article text.
type Scraper struct {
	client    *http.Client
	userAgent string
	minChars  int
}

// NewScraper creates a scraper with the given timeout, User-Agent, and
// minimum useful content length. minChars <= 0 selects DefaultMinChars.
func NewScraper(timeout time.Duration, userAgent string, minChars int) *Scraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return &Scraper{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		minChars:  minChars,
	}
}

// Scrape fetches a page and returns its main textual content, stripped
// of navigation and boilerplate. A page that is not article-shaped, or
// whose extracted text is below the minimum length, yields ("", nil).
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (string, error) {
	_, text, err := s.ScrapePage(ctx, pageURL)
	return text, err
}

// ScrapePage is Scrape plus the extracted page title, for callers that
// ingest a bare URL with no feed entry to take a title from.
func (s *Scraper) ScrapePage(ctx context.Context, pageURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch %s returned status %d", pageURL, resp.StatusCode)
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		logger.Debug("page is not article-shaped", "url", pageURL, "reason", err.Error())
		return "", "", nil
	}

	text := cleanArticleHTML(article.Content)
	if len(text) < s.minChars {
		logger.Debug("scraped content too short, keeping feed content", "url", pageURL, "length", len(text))
		return article.Title, "", nil
	}
	return article.Title, text, nil
}

// cleanArticleHTML strips residual non-content elements from extracted
// article HTML and collapses the remaining text onto single spaces.
func cleanArticleHTML(articleHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(articleHTML))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
