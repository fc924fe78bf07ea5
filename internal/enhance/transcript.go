package enhance

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"sift/internal/logger"
)

const watchPageURL = "https://www.youtube.com/watch?v="

// Transcripts fetches caption transcripts for YouTube videos from the
// public caption tracks advertised on the watch page.
type Transcripts struct {
	client    *http.Client
	userAgent string
	watchBase string
}

// NewTranscripts creates a transcript client with the given timeout.
func NewTranscripts(timeout time.Duration, userAgent string) *Transcripts {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Transcripts{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		watchBase: watchPageURL,
	}
}

// captionTrack is one entry of the watch page's captionTracks array.
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// Fetch returns the transcript text for a video in the first available
// preferred language, normalized to single-space separation. A video
// with no usable transcript yields ("", nil); that is the common case,
// not a failure.
func (t *Transcripts) Fetch(ctx context.Context, videoID string, languages []string) (string, error) {
	page, err := t.get(ctx, t.watchBase+videoID)
	if err != nil {
		return "", err
	}

	tracks, err := parseCaptionTracks(page)
	if err != nil {
		return "", fmt.Errorf("failed to read caption tracks for %s: %w", videoID, err)
	}
	track := pickTrack(tracks, languages)
	if track == nil {
		logger.Debug("no transcript available", "video_id", videoID)
		return "", nil
	}

	captions, err := t.get(ctx, track.BaseURL)
	if err != nil {
		return "", err
	}
	return parseTimedText(captions)
}

func (t *Transcripts) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	req.Header.Set("Accept-Language", "en-US")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcript request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcript request to %s returned status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parseCaptionTracks extracts the captionTracks JSON array embedded in
// the watch page. A page without caption tracks returns an empty slice.
func parseCaptionTracks(page []byte) ([]captionTrack, error) {
	const marker = `"captionTracks":`
	idx := strings.Index(string(page), marker)
	if idx < 0 {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(string(page[idx+len(marker):])))
	var tracks []captionTrack
	if err := dec.Decode(&tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// pickTrack selects the first track matching the preferred language
// order. With no preferences the first track wins. Manually created
// tracks are preferred over auto-generated ones within a language.
func pickTrack(tracks []captionTrack, languages []string) *captionTrack {
	if len(tracks) == 0 {
		return nil
	}
	if len(languages) == 0 {
		return &tracks[0]
	}
	for _, lang := range languages {
		var generated *captionTrack
		for i := range tracks {
			if !strings.EqualFold(tracks[i].LanguageCode, lang) {
				continue
			}
			if tracks[i].Kind != "asr" {
				return &tracks[i]
			}
			if generated == nil {
				generated = &tracks[i]
			}
		}
		if generated != nil {
			return generated
		}
	}
	return nil
}

// parseTimedText converts YouTube's timedtext XML into plain text with
// all whitespace collapsed to single spaces.
func parseTimedText(data []byte) (string, error) {
	var doc struct {
		Texts []struct {
			Value string `xml:",chardata"`
		} `xml:"text"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to parse timedtext: %w", err)
	}

	var parts []string
	for _, text := range doc.Texts {
		line := strings.TrimSpace(html.UnescapeString(text.Value))
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " "), nil
}
