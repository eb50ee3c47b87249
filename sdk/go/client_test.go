package asyncopssdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoginStoresToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"token_type":   "bearer",
			"user":         map[string]any{"id": 1, "email": "a@b.c"},
		})
	}))
	defer ts.Close()

	c := New(ts.URL)
	resp, err := c.Login(context.Background(), "a@b.c", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken != "tok-123" || c.BearerToken != "tok-123" {
		t.Fatalf("token not stored: %+v client=%q", resp, c.BearerToken)
	}
}

func TestBearerHeaderSent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Fatalf("authorization header: %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 1, "email": "a@b.c"})
	}))
	defer ts.Close()

	c := New(ts.URL)
	c.BearerToken = "tok-123"
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("me: %v", err)
	}
}

func TestErrorEnvelopeParsed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "archived", "message": "incident 12 is archived"},
		})
	}))
	defer ts.Close()

	c := New(ts.URL)
	c.BearerToken = "tok-123"
	_, err := c.Incidents(context.Background(), 1, 10)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Code != "archived" {
		t.Fatalf("api error: %+v", apiErr)
	}
}

func TestSessionExpiredHookClearsToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "invalid_credentials", "message": "invalid credentials"},
		})
	}))
	defer ts.Close()

	c := New(ts.URL)
	c.BearerToken = "stale"
	expired := false
	c.OnSessionExpired = func() { expired = true }
	if _, err := c.Me(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !expired || c.BearerToken != "" {
		t.Fatalf("session expiry: expired=%v token=%q", expired, c.BearerToken)
	}
}
