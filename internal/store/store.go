// Package store provides the SQLite-backed content store. It is the
// single source of truth for whether an item has already been processed.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sift/internal/core"
)

// Store is the SQLite-backed persistence layer for content, YouTube
// subscriptions, and OAuth tokens.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if necessary) the database under dataDir.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "sift.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Within one ingestion run, dedup reads must observe earlier writes.
	// A single connection keeps SQLite's write-then-read behavior simple.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

// initialize creates the necessary tables and indexes.
func (s *Store) initialize() error {
	contentTable := `
	CREATE TABLE IF NOT EXISTS content_cache (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		author_username TEXT NOT NULL,
		author_display_name TEXT,
		content TEXT NOT NULL,
		url TEXT,
		created_at TIMESTAMP NOT NULL,
		fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		metadata TEXT,
		like_count INTEGER DEFAULT 0,
		reply_count INTEGER DEFAULT 0
	);`

	subscriptionsTable := `
	CREATE TABLE IF NOT EXISTS subscriptions (
		channel_id TEXT PRIMARY KEY,
		channel_title TEXT NOT NULL,
		channel_description TEXT,
		thumbnail_url TEXT,
		rss_url TEXT NOT NULL,
		subscribed_at TEXT,
		last_synced TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	tokensTable := `
	CREATE TABLE IF NOT EXISTS oauth_tokens (
		service TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		refresh_token TEXT,
		expires_at REAL,
		token_type TEXT DEFAULT 'Bearer',
		scope TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	statements := []string{
		contentTable,
		subscriptionsTable,
		tokensTable,
		`CREATE INDEX IF NOT EXISTS idx_content_cache_created_at ON content_cache(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_content_cache_source_author ON content_cache(source, author_username);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces an item by id. The original fetched_at is
// preserved when the row already exists.
func (s *Store) Upsert(ctx context.Context, item core.Item) error {
	metadata := item.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata for %s: %w", item.ID, err)
	}

	query := `
	INSERT INTO content_cache
	(id, source, author_username, author_display_name, content, url, created_at, fetched_at, metadata, like_count, reply_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		source = excluded.source,
		author_username = excluded.author_username,
		author_display_name = excluded.author_display_name,
		content = excluded.content,
		url = excluded.url,
		created_at = excluded.created_at,
		metadata = excluded.metadata,
		like_count = excluded.like_count,
		reply_count = excluded.reply_count`

	fetchedAt := item.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, query,
		item.ID,
		item.Source,
		item.AuthorUsername,
		item.AuthorDisplayName,
		item.Content,
		item.URL,
		item.CreatedAt.UTC(),
		fetchedAt,
		string(metadataJSON),
		item.LikeCount,
		item.ReplyCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert item %s: %w", item.ID, err)
	}
	return nil
}

const itemColumns = `id, source, author_username, author_display_name, content, url, created_at, fetched_at, metadata, like_count, reply_count`

// Get retrieves an item by id. A missing row is (nil, nil), not an error.
func (s *Store) Get(ctx context.Context, id string) (*core.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM content_cache WHERE id = ?`
	return s.scanItem(s.db.QueryRowContext(ctx, query, id))
}

// GetByURL retrieves an item by its canonical URL. A missing row is (nil, nil).
func (s *Store) GetByURL(ctx context.Context, url string) (*core.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM content_cache WHERE url = ? LIMIT 1`
	return s.scanItem(s.db.QueryRowContext(ctx, query, url))
}

// ListSince returns items created at or after the given time, newest
// first. An empty source returns items from all sources.
func (s *Store) ListSince(ctx context.Context, since time.Time, source string) ([]core.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM content_cache WHERE created_at >= ?`
	args := []any{since.UTC()}
	if source != "" {
		query += ` AND source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []core.Item
	for rows.Next() {
		item, err := s.scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanItem(row *sql.Row) (*core.Item, error) {
	item, err := s.scanItemRow(row)
	if err == sql.ErrNoRows {
		return nil, nil // cache miss
	}
	return item, err
}

func (s *Store) scanItemRow(row rowScanner) (*core.Item, error) {
	var item core.Item
	var displayName, url, metadata sql.NullString

	err := row.Scan(
		&item.ID,
		&item.Source,
		&item.AuthorUsername,
		&displayName,
		&item.Content,
		&url,
		&item.CreatedAt,
		&item.FetchedAt,
		&metadata,
		&item.LikeCount,
		&item.ReplyCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}

	item.AuthorDisplayName = displayName.String
	item.URL = url.String
	item.Metadata = map[string]any{}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &item.Metadata); err != nil {
			return nil, fmt.Errorf("failed to parse metadata for %s: %w", item.ID, err)
		}
	}
	return &item, nil
}

// SaveSubscription upserts a YouTube subscription by channel id.
func (s *Store) SaveSubscription(ctx context.Context, sub core.Subscription) error {
	query := `
	INSERT OR REPLACE INTO subscriptions
	(channel_id, channel_title, channel_description, thumbnail_url, rss_url, subscribed_at, last_synced)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		sub.ChannelID,
		sub.ChannelTitle,
		sub.ChannelDescription,
		sub.ThumbnailURL,
		sub.RSSURL,
		sub.SubscribedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save subscription %s: %w", sub.ChannelID, err)
	}
	return nil
}

// ListSubscriptions returns all synced subscriptions ordered by channel title.
func (s *Store) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	query := `
	SELECT channel_id, channel_title, channel_description, thumbnail_url, rss_url, subscribed_at, last_synced
	FROM subscriptions ORDER BY channel_title`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []core.Subscription
	for rows.Next() {
		var sub core.Subscription
		var description, thumbnail, subscribedAt sql.NullString
		if err := rows.Scan(&sub.ChannelID, &sub.ChannelTitle, &description, &thumbnail, &sub.RSSURL, &subscribedAt, &sub.LastSynced); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		sub.ChannelDescription = description.String
		sub.ThumbnailURL = thumbnail.String
		sub.SubscribedAt = subscribedAt.String
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SaveToken upserts a token by service, preserving created_at on update.
func (s *Store) SaveToken(ctx context.Context, token core.Token) error {
	now := time.Now().UTC()
	query := `
	INSERT INTO oauth_tokens
	(service, access_token, refresh_token, expires_at, token_type, scope, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(service) DO UPDATE SET
		access_token = excluded.access_token,
		refresh_token = excluded.refresh_token,
		expires_at = excluded.expires_at,
		token_type = excluded.token_type,
		scope = excluded.scope,
		updated_at = excluded.updated_at`

	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	_, err := s.db.ExecContext(ctx, query,
		token.Service,
		token.AccessToken,
		token.RefreshToken,
		token.ExpiresAt,
		tokenType,
		token.Scope,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save token for %s: %w", token.Service, err)
	}
	return nil
}

// GetToken retrieves the token for a service. A missing row is (nil, nil).
func (s *Store) GetToken(ctx context.Context, service string) (*core.Token, error) {
	query := `
	SELECT service, access_token, refresh_token, expires_at, token_type, scope, created_at, updated_at
	FROM oauth_tokens WHERE service = ?`

	var token core.Token
	var refreshToken, scope sql.NullString
	var expiresAt sql.NullFloat64

	err := s.db.QueryRowContext(ctx, query, service).Scan(
		&token.Service,
		&token.AccessToken,
		&refreshToken,
		&expiresAt,
		&token.TokenType,
		&scope,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan token for %s: %w", service, err)
	}

	token.RefreshToken = refreshToken.String
	token.ExpiresAt = expiresAt.Float64
	token.Scope = scope.String
	return &token, nil
}

// DeleteToken removes the token for a service (logout/revocation).
func (s *Store) DeleteToken(ctx context.Context, service string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE service = ?`, service); err != nil {
		return fmt.Errorf("failed to delete token for %s: %w", service, err)
	}
	return nil
}

// Stats describes the current state of the store.
type Stats struct {
	ItemCount         int
	SubscriptionCount int
	DatabaseSize      int64
}

// GetStats returns row counts and the database file size.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_cache`).Scan(&stats.ItemCount); err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions`).Scan(&stats.SubscriptionCount); err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

// Clear removes all cached content. Subscriptions and tokens are kept.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM content_cache`); err != nil {
		return fmt.Errorf("failed to clear content cache: %w", err)
	}
	return nil
}
