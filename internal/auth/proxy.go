// Package auth manages per-service OAuth tokens acquired through an
// external OAuth proxy. The proxy holds the client secret; this package
// only ever sees issued tokens.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultPollTimeout bounds how long Authenticate waits for the user to
// complete the browser flow.
const DefaultPollTimeout = 180 * time.Second

const defaultPollInterval = 2 * time.Second

// ProxyToken is a token issued by the OAuth proxy.
type ProxyToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    float64 // epoch seconds; 0 when the proxy reports no expiry
	TokenType    string
	Scope        string
}

// ProxyClient talks to the OAuth proxy's refresh and authentication
// endpoints.
type ProxyClient struct {
	baseURL      string
	client       *http.Client
	pollTimeout  time.Duration
	pollInterval time.Duration

	// Notify is called with the authorization URL the user must visit
	// during full authentication. Defaults to a no-op.
	Notify func(authURL string)
}

// NewProxyClient creates a proxy client for the given base URL.
func NewProxyClient(baseURL string, timeout time.Duration) *ProxyClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProxyClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: timeout},
		pollTimeout:  DefaultPollTimeout,
		pollInterval: defaultPollInterval,
		Notify:       func(string) {},
	}
}

type proxyResponse struct {
	Status       string          `json:"status"`
	AuthURL      string          `json:"auth_url"`
	SessionID    string          `json:"session_id"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    json.RawMessage `json:"expires_in"`
	TokenType    string          `json:"token_type"`
	Scope        string          `json:"scope"`
	Error        string          `json:"error"`
}

// Refresh exchanges a refresh token for a fresh access token.
func (c *ProxyClient) Refresh(ctx context.Context, refreshToken string) (*ProxyToken, error) {
	if refreshToken == "" {
		return nil, errors.New("no refresh token available")
	}

	body, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
	resp, err := c.post(ctx, c.baseURL+"/auth/refresh", body)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	if resp.AccessToken == "" {
		if resp.Error != "" {
			return nil, fmt.Errorf("token refresh rejected: %s", resp.Error)
		}
		return nil, errors.New("token refresh returned no access token")
	}

	token := resp.token(refreshToken)
	return &token, nil
}

// Authenticate runs the full proxy flow: initiate to obtain an
// authorization URL, surface it through Notify, then poll until the
// user completes the flow or the poll window closes.
func (c *ProxyClient) Authenticate(ctx context.Context) (*ProxyToken, error) {
	resp, err := c.post(ctx, c.baseURL+"/auth/initiate", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate authentication: %w", err)
	}
	if resp.AuthURL == "" || resp.SessionID == "" {
		return nil, errors.New("proxy returned no auth_url or session_id")
	}

	c.Notify(resp.AuthURL)
	return c.poll(ctx, resp.SessionID)
}

func (c *ProxyClient) poll(ctx context.Context, sessionID string) (*ProxyToken, error) {
	pollURL := c.baseURL + "/auth/poll/" + url.PathEscape(sessionID)
	deadline := time.Now().Add(c.pollTimeout)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		resp, err := c.get(ctx, pollURL)
		if err != nil {
			continue // transient; keep polling until the deadline
		}
		if resp.AccessToken != "" {
			token := resp.token("")
			return &token, nil
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("authentication failed: %s", resp.Error)
		}
	}
	return nil, errors.New("authentication timed out waiting for approval")
}

func (c *ProxyClient) post(ctx context.Context, url string, body []byte) (*proxyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *ProxyClient) get(ctx context.Context, url string) (*proxyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *ProxyClient) do(req *http.Request) (*proxyResponse, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("proxy returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed proxyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode proxy response: %w", err)
	}
	return &parsed, nil
}

// token converts a proxy response into a ProxyToken, keeping the prior
// refresh token when the proxy did not rotate it.
func (r *proxyResponse) token(priorRefreshToken string) ProxyToken {
	token := ProxyToken{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		Scope:        r.Scope,
	}
	if token.RefreshToken == "" {
		token.RefreshToken = priorRefreshToken
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	if secs := expiresInSeconds(r.ExpiresIn); secs > 0 {
		token.ExpiresAt = float64(time.Now().Unix()) + secs
	}
	return token
}

// expiresInSeconds accepts the proxy's expires_in as either a JSON
// number or a numeric string.
func expiresInSeconds(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n
		}
	}
	return 0
}
