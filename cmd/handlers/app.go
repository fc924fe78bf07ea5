package handlers

import (
	"fmt"

	"sift/internal/auth"
	"sift/internal/config"
	"sift/internal/enhance"
	"sift/internal/feeds"
	"sift/internal/ingest"
	"sift/internal/logger"
	"sift/internal/sources"
	"sift/internal/store"
)

// app is the wired-up application: configuration resolved once, every
// component constructed with its collaborators passed in explicitly.
type app struct {
	cfg          *config.Config
	store        *store.Store
	orchestrator *ingest.Orchestrator
	tokens       *auth.Manager
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// buildApp loads configuration and constructs the ingestion pipeline.
func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.App.Debug {
		logger.SetLevel("debug")
	} else {
		logger.SetLevel(cfg.App.LogLevel)
	}

	st, err := store.New(cfg.Cache.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	feedManager := feeds.NewManager(cfg.Feeds.TimeoutDuration(), cfg.Feeds.UserAgent)
	scraper := enhance.NewScraper(cfg.Scrape.TimeoutDuration(), cfg.Feeds.UserAgent, cfg.Scrape.MinChars)
	transcripts := enhance.NewTranscripts(cfg.YouTube.TimeoutDuration(), cfg.Feeds.UserAgent)
	enhancer := enhance.New(scraper, transcripts, cfg.YouTube.TranscriptLanguages)

	rssSource := sources.NewRSS(feedManager, st, enhancer, cfg.Feeds.URLs, cfg.Scrape.Enabled, cfg.Scrape.Concurrency)
	srcs := []sources.Source{rssSource}

	tokens, err := buildTokenManager(cfg, st)
	if err != nil {
		st.Close()
		return nil, err
	}

	if cfg.YouTube.Enabled {
		ytSource := sources.NewYouTube(tokens, st, st, rssSource, enhancer, cfg.YouTube.TimeoutDuration(), cfg.Scrape.Concurrency)
		srcs = append(srcs, ytSource)
	}

	orchestrator := ingest.New(st, srcs, cfg.Filters, scraper, cfg.Feeds.LookbackHours)

	return &app{
		cfg:          cfg,
		store:        st,
		orchestrator: orchestrator,
		tokens:       tokens,
	}, nil
}

// buildTokenManager wires the OAuth proxy client. A missing proxy URL
// with YouTube enabled is a configuration error, reported distinctly
// from transient failures so the operator gets actionable guidance.
func buildTokenManager(cfg *config.Config, st *store.Store) (*auth.Manager, error) {
	if cfg.YouTube.Enabled && cfg.YouTube.ProxyBaseURL == "" {
		return nil, fmt.Errorf("youtube.proxy_base_url is required when the YouTube source is enabled; set it in your config file")
	}

	proxy := auth.NewProxyClient(cfg.YouTube.ProxyBaseURL, cfg.YouTube.TimeoutDuration())
	proxy.Notify = func(authURL string) {
		fmt.Printf("Open this URL in your browser to authorize access:\n\n  %s\n\n", authURL)
	}
	return auth.NewManager(auth.ServiceYouTube, st, proxy), nil
}
