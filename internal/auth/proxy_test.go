package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestProxyRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/refresh" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["refresh_token"] != "refresh-1" {
			t.Errorf("Expected refresh_token in body, got %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh",
			"expires_in":   3600,
			"scope":        "youtube.readonly",
		})
	}))
	defer server.Close()

	c := NewProxyClient(server.URL, 10*time.Second)
	token, err := c.Refresh(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if token.AccessToken != "fresh" {
		t.Errorf("Expected access token 'fresh', got %q", token.AccessToken)
	}
	if token.RefreshToken != "refresh-1" {
		t.Errorf("Expected prior refresh token kept, got %q", token.RefreshToken)
	}
	if token.TokenType != "Bearer" {
		t.Errorf("Expected default token type Bearer, got %q", token.TokenType)
	}
	if token.ExpiresAt == 0 {
		t.Error("Expected expiry computed from expires_in")
	}
}

func TestProxyRefreshRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer server.Close()

	c := NewProxyClient(server.URL, 10*time.Second)
	_, err := c.Refresh(context.Background(), "revoked")
	if err == nil {
		t.Fatal("Expected error for rejected refresh")
	}
	if !strings.Contains(err.Error(), "invalid_grant") {
		t.Errorf("Expected proxy error surfaced, got %v", err)
	}
}

func TestProxyRefreshNoToken(t *testing.T) {
	c := NewProxyClient("http://unused", 10*time.Second)
	if _, err := c.Refresh(context.Background(), ""); err == nil {
		t.Fatal("Expected error when no refresh token is available")
	}
}

func TestProxyAuthenticate(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/initiate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST initiate, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"auth_url":   "https://accounts.example.com/consent?x=1",
			"session_id": "sess-42",
		})
	})
	mux.HandleFunc("/auth/poll/sess-42", func(w http.ResponseWriter, r *http.Request) {
		// Pending for the first two polls, then complete.
		if polls.Add(1) < 3 {
			json.NewEncoder(w).Encode(map[string]string{"status": "pending"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "approved",
			"refresh_token": "refresh-new",
			"expires_in":    "3600",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewProxyClient(server.URL, 10*time.Second)
	c.pollInterval = 5 * time.Millisecond

	var notified string
	c.Notify = func(authURL string) { notified = authURL }

	token, err := c.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if notified != "https://accounts.example.com/consent?x=1" {
		t.Errorf("Expected auth URL surfaced through Notify, got %q", notified)
	}
	if token.AccessToken != "approved" || token.RefreshToken != "refresh-new" {
		t.Errorf("Unexpected token %+v", token)
	}
	if token.ExpiresAt == 0 {
		t.Error("Expected expiry parsed from string expires_in")
	}
	if polls.Load() < 3 {
		t.Errorf("Expected polling to continue while pending, got %d polls", polls.Load())
	}
}

func TestProxyAuthenticateDenied(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/initiate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"auth_url":   "https://accounts.example.com/consent",
			"session_id": "sess-1",
		})
	})
	mux.HandleFunc("/auth/poll/sess-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "access_denied"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewProxyClient(server.URL, 10*time.Second)
	c.pollInterval = 5 * time.Millisecond

	_, err := c.Authenticate(context.Background())
	if err == nil {
		t.Fatal("Expected error when user denies")
	}
	if !strings.Contains(err.Error(), "access_denied") {
		t.Errorf("Expected denial reason surfaced, got %v", err)
	}
}

func TestProxyAuthenticateTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/initiate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"auth_url":   "https://accounts.example.com/consent",
			"session_id": "sess-1",
		})
	})
	mux.HandleFunc("/auth/poll/sess-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "pending"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewProxyClient(server.URL, 10*time.Second)
	c.pollInterval = 5 * time.Millisecond
	c.pollTimeout = 30 * time.Millisecond

	_, err := c.Authenticate(context.Background())
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Expected timeout in error, got %v", err)
	}
}

func TestExpiresInSeconds(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{``, 0},
		{`3600`, 3600},
		{`"3600"`, 3600},
		{`" 1800 "`, 1800},
		{`"soon"`, 0},
		{`null`, 0},
	}
	for _, tt := range tests {
		var raw json.RawMessage
		if tt.raw != "" {
			raw = json.RawMessage(tt.raw)
		}
		if got := expiresInSeconds(raw); got != tt.want {
			t.Errorf("expiresInSeconds(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
