// Package sources contains the content source adapters. Each adapter
// turns an external feed-like service into normalized core.Items,
// consulting the content store before any expensive enrichment.
package sources

import (
	"context"
	"time"

	"sift/internal/core"
)

// Source is the capability every content source implements.
type Source interface {
	// Name returns the source tag (core.SourceRSS, core.SourceYouTube).
	Name() string

	// GetRecentContent returns normalized items published after since,
	// newest first. Items already present in the content store are
	// omitted.
	GetRecentContent(ctx context.Context, since time.Time) ([]core.Item, error)
}

// ContentLookup is the read side of the content store used for per-item
// dedup decisions.
type ContentLookup interface {
	Get(ctx context.Context, id string) (*core.Item, error)
}
