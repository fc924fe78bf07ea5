package enhance

import (
	"context"

	"sift/internal/core"
	"sift/internal/logger"
)

// Delimiters under which enhanced text is appended to an item body.
const (
	FullContentDelimiter       = "\nFull Content:\n"
	TranscriptPreviewDelimiter = "\n\nTranscript preview: "
)

// transcriptPreviewChars bounds how much transcript is inlined into the
// body; the full transcript lives in metadata.
const transcriptPreviewChars = 300

// ArticleScraper extracts main text from a web page.
type ArticleScraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// TranscriptFetcher retrieves a video transcript, or "" when none exists.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string, languages []string) (string, error)
}

// Enhancer augments item bodies. All enhancement is best-effort: a
// failed scrape or transcript fetch leaves the item as it was.
type Enhancer struct {
	scraper     ArticleScraper
	transcripts TranscriptFetcher
	languages   []string
}

// New creates an enhancer. Either collaborator may be nil to disable
// that enhancement kind.
func New(scraper ArticleScraper, transcripts TranscriptFetcher, languages []string) *Enhancer {
	return &Enhancer{scraper: scraper, transcripts: transcripts, languages: languages}
}

// EnhanceArticle appends the scraped full text of item.URL to the body
// when the scrape yields strictly more text than is already known.
// The pre-enhancement body is expected to be preserved by the caller in
// metadata before enhancement runs.
func (e *Enhancer) EnhanceArticle(ctx context.Context, item *core.Item) {
	if e.scraper == nil || item.URL == "" {
		return
	}

	scraped, err := e.scraper.Scrape(ctx, item.URL)
	if err != nil {
		logger.Warn("article scrape failed", "url", item.URL, "error", err.Error())
		return
	}
	if scraped == "" || len(scraped) <= len(item.Content) {
		return
	}

	item.Content += FullContentDelimiter + scraped
	logger.Info("enhanced item with scraped content", "url", item.URL, "chars", len(scraped))
}

// EnhanceTranscript fetches the transcript for a video and, when one
// exists, records it in metadata and appends a bounded preview to the
// body. Items without transcripts pass through unchanged.
func (e *Enhancer) EnhanceTranscript(ctx context.Context, item *core.Item, videoID string) {
	if e.transcripts == nil || videoID == "" {
		return
	}

	transcript, err := e.transcripts.Fetch(ctx, videoID, e.languages)
	if err != nil {
		logger.Warn("transcript fetch failed", "video_id", videoID, "error", err.Error())
		return
	}
	if transcript == "" {
		return
	}

	if item.Metadata == nil {
		item.Metadata = map[string]any{}
	}
	item.Metadata["youtube_video_id"] = videoID
	item.Metadata["youtube_transcript"] = transcript

	preview := transcript
	if len(preview) > transcriptPreviewChars {
		preview = preview[:transcriptPreviewChars] + "..."
	}
	item.Content += TranscriptPreviewDelimiter + preview
	logger.Info("enhanced item with transcript", "video_id", videoID, "chars", len(transcript))
}
