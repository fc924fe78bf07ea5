package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sift/internal/core"
	"sift/internal/logger"
)

// ServiceYouTube is the only service exercised today; the manager
// itself is service-agnostic.
const ServiceYouTube = "youtube"

// ErrReauthRequired reports that both refresh and full re-authentication
// failed; the operator must authenticate interactively.
var ErrReauthRequired = errors.New("authentication required: run `sift auth`")

// TokenStore is the persistence the manager reads and writes through.
// The manager keeps no token state between calls.
type TokenStore interface {
	GetToken(ctx context.Context, service string) (*core.Token, error)
	SaveToken(ctx context.Context, token core.Token) error
	DeleteToken(ctx context.Context, service string) error
}

// TokenProxy is the external OAuth proxy the manager acquires tokens from.
type TokenProxy interface {
	Refresh(ctx context.Context, refreshToken string) (*ProxyToken, error)
	Authenticate(ctx context.Context) (*ProxyToken, error)
}

// Manager provides usable access tokens for a service, refreshing or
// re-authenticating through the proxy as needed. Every successful
// acquisition is persisted before it is returned.
type Manager struct {
	service string
	store   TokenStore
	proxy   TokenProxy
	now     func() time.Time
}

// NewManager creates a token manager for one service.
func NewManager(service string, store TokenStore, proxy TokenProxy) *Manager {
	return &Manager{service: service, store: store, proxy: proxy, now: time.Now}
}

// AccessToken returns a usable access token. A stored, unexpired token
// is returned as-is. Otherwise the manager makes exactly one refresh
// attempt and, if that fails, exactly one full authentication attempt
// before reporting ErrReauthRequired.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	stored, err := m.store.GetToken(ctx, m.service)
	if err != nil {
		return "", fmt.Errorf("failed to load token for %s: %w", m.service, err)
	}

	if stored != nil && !stored.Expired(m.now()) {
		return stored.AccessToken, nil
	}

	refreshToken := ""
	if stored != nil {
		refreshToken = stored.RefreshToken
	}

	if refreshToken != "" {
		refreshed, err := m.proxy.Refresh(ctx, refreshToken)
		if err == nil {
			if err := m.persist(ctx, refreshed); err != nil {
				return "", err
			}
			logger.Info("access token refreshed", "service", m.service)
			return refreshed.AccessToken, nil
		}
		logger.Warn("token refresh failed, attempting full authentication", "service", m.service, "error", err.Error())
	}

	acquired, err := m.proxy.Authenticate(ctx)
	if err != nil {
		logger.Error("authentication failed", err, "service", m.service)
		return "", fmt.Errorf("%w: %v", ErrReauthRequired, err)
	}
	if err := m.persist(ctx, acquired); err != nil {
		return "", err
	}
	logger.Info("authenticated", "service", m.service)
	return acquired.AccessToken, nil
}

// Authenticate forces a fresh token acquisition through the proxy's
// full flow, regardless of any stored token.
func (m *Manager) Authenticate(ctx context.Context) error {
	acquired, err := m.proxy.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authentication failed for %s: %w", m.service, err)
	}
	return m.persist(ctx, acquired)
}

// Logout deletes the stored token for the service.
func (m *Manager) Logout(ctx context.Context) error {
	return m.store.DeleteToken(ctx, m.service)
}

func (m *Manager) persist(ctx context.Context, token *ProxyToken) error {
	record := core.Token{
		Service:      m.service,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt,
		TokenType:    token.TokenType,
		Scope:        token.Scope,
	}
	if err := m.store.SaveToken(ctx, record); err != nil {
		return fmt.Errorf("failed to persist token for %s: %w", m.service, err)
	}
	return nil
}
