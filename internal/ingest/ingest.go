// Package ingest coordinates the source adapters: it fans out across
// configured sources, applies keyword filtering, and persists the
// surviving items, isolating failures per source.
package ingest

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sift/internal/config"
	"sift/internal/core"
	"sift/internal/enhance"
	"sift/internal/logger"
	"sift/internal/sources"
)

// ContentStore is the write side of the content store the orchestrator
// persists through, plus the URL lookup used by manual ingestion.
type ContentStore interface {
	Upsert(ctx context.Context, item core.Item) error
	GetByURL(ctx context.Context, url string) (*core.Item, error)
}

// Options selects what an ingestion run covers.
type Options struct {
	Sources    []string // source names to run; empty means all configured
	SinceHours int      // lookback window; <= 0 uses the configured default
}

// Result summarizes an ingestion run.
type Result struct {
	Items     []core.Item    // newly ingested, post-filter items
	PerSource map[string]int // items contributed per source
	Errors    []string       // per-source failure descriptions
	Saved     int            // items successfully persisted
	Attempted int            // items that reached persistence
}

// Orchestrator runs ingestion across all configured sources.
type Orchestrator struct {
	store   ContentStore
	sources []sources.Source
	filters config.Filters
	scraper *enhance.Scraper

	// LookbackHours is the default window when Options.SinceHours is unset.
	LookbackHours int
}

// New creates an orchestrator over the given sources.
func New(store ContentStore, srcs []sources.Source, filters config.Filters, scraper *enhance.Scraper, lookbackHours int) *Orchestrator {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	return &Orchestrator{
		store:         store,
		sources:       srcs,
		filters:       filters,
		scraper:       scraper,
		LookbackHours: lookbackHours,
	}
}

// Run executes one ingestion pass. Sources run concurrently; a failing
// source is recorded in the result and never prevents the others from
// completing. Persistence is sequential so content store writes stay
// single-writer.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	sinceHours := opts.SinceHours
	if sinceHours <= 0 {
		sinceHours = o.LookbackHours
	}
	since := time.Now().UTC().Add(-time.Duration(sinceHours) * time.Hour)

	selected, err := o.selectSources(opts.Sources)
	if err != nil {
		return nil, err
	}

	type sourceResult struct {
		name  string
		items []core.Item
		err   error
	}
	results := make([]sourceResult, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range selected {
		g.Go(func() error {
			logger.Info("ingesting source", "source", src.Name(), "since", since)
			items, err := src.GetRecentContent(gctx, since)
			results[i] = sourceResult{name: src.Name(), items: items, err: err}
			return nil // source failures stay in the result; they never cancel siblings
		})
	}
	_ = g.Wait()

	result := &Result{PerSource: map[string]int{}}
	var collected []core.Item
	for _, r := range results {
		if r.err != nil {
			logger.Error("source failed", r.err, "source", r.name)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", r.name, r.err))
			continue
		}
		result.PerSource[r.name] = len(r.items)
		collected = append(collected, r.items...)
	}

	result.Items = filterItems(collected, o.filters.Include, o.filters.Exclude)
	o.persist(ctx, result)
	return result, nil
}

// persist upserts every surviving item. Store failures are counted and
// logged; they do not stop the remaining items.
func (o *Orchestrator) persist(ctx context.Context, result *Result) {
	for _, item := range result.Items {
		result.Attempted++
		if err := o.store.Upsert(ctx, item); err != nil {
			logger.Error("failed to save item", err, "id", item.ID)
			continue
		}
		result.Saved++
	}
	logger.Info("ingestion run complete", "saved", result.Saved, "attempted", result.Attempted)
}

func (o *Orchestrator) selectSources(names []string) ([]sources.Source, error) {
	if len(names) == 0 {
		return o.sources, nil
	}

	byName := make(map[string]sources.Source, len(o.sources))
	for _, src := range o.sources {
		byName[src.Name()] = src
	}

	selected := make([]sources.Source, 0, len(names))
	for _, name := range names {
		src, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		selected = append(selected, src)
	}
	return selected, nil
}

// IngestURL ingests a single page ad hoc, outside the feed adapters.
// The id is derived deterministically from the URL so repeated calls
// are idempotent.
func (o *Orchestrator) IngestURL(ctx context.Context, rawURL string) (*core.Item, error) {
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if o.scraper == nil {
		return nil, fmt.Errorf("scraping is disabled; cannot ingest %s", rawURL)
	}

	if existing, err := o.store.GetByURL(ctx, rawURL); err == nil && existing != nil {
		logger.Info("URL already ingested", "url", rawURL, "id", existing.ID)
		return existing, nil
	}

	title, text, err := o.scraper.ScrapePage(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape %s: %w", rawURL, err)
	}
	if text == "" {
		return nil, fmt.Errorf("no article content found at %s", rawURL)
	}

	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(rawURL)).String()
	item := core.NewItem(id, core.SourceWebsite, parsed.Host, text, rawURL, time.Now().UTC())
	item.Metadata["entry_title"] = title

	if err := o.store.Upsert(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", rawURL, err)
	}
	return &item, nil
}
