package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cashmeremcp/surge/internal/auth"
)

func TestStaticTokenProviderInjectsBearer(t *testing.T) {
	p := auth.NewStaticTokenProvider("cm-key-123")

	token, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "cm-key-123" {
		t.Errorf("token = %q", token)
	}

	req := httptest.NewRequest(http.MethodPost, "http://example.test/mcp", nil)
	if err := p.InjectHeader(context.Background(), req); err != nil {
		t.Fatalf("InjectHeader: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer cm-key-123" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer cm-key-123")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOAuth2ProviderFetchesAndCachesToken(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if got := r.PostFormValue("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostFormValue("client_id"); got != "surge-worker" {
			t.Errorf("client_id = %q", got)
		}
		if got := r.PostFormValue("scope"); got != "search read" {
			t.Errorf("scope = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	p := auth.NewOAuth2ClientCredentialsProvider(srv.URL, "surge-worker", "s3cret", []string{"search", "read"})

	for i := 0; i < 3; i++ {
		token, err := p.Token(context.Background())
		if err != nil {
			t.Fatalf("Token call %d: %v", i, err)
		}
		if token != "tok-1" {
			t.Errorf("token = %q, want tok-1", token)
		}
	}
	if fetches != 1 {
		t.Errorf("token endpoint hit %d times, want 1 (cached)", fetches)
	}

	req := httptest.NewRequest(http.MethodPost, "http://example.test/mcp", nil)
	if err := p.InjectHeader(context.Background(), req); err != nil {
		t.Fatalf("InjectHeader: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer tok-1" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestOAuth2ProviderRefetchesAfterClose(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-" + strings.Repeat("x", fetches),
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	p := auth.NewOAuth2ClientCredentialsProvider(srv.URL, "id", "secret", nil)

	if _, err := p.Token(context.Background()); err != nil {
		t.Fatalf("first Token: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	token, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("second Token: %v", err)
	}
	if token != "tok-xx" {
		t.Errorf("token after Close = %q, want a fresh fetch", token)
	}
	if fetches != 2 {
		t.Errorf("token endpoint hit %d times, want 2", fetches)
	}
}

func TestOAuth2ProviderSurfacesEndpointErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_client",
			"error_description": "unknown client id",
		})
	}))
	defer srv.Close()

	p := auth.NewOAuth2ClientCredentialsProvider(srv.URL, "bogus", "nope", nil)

	_, err := p.Token(context.Background())
	if err == nil {
		t.Fatal("expected an error from the token endpoint")
	}
	if !strings.Contains(err.Error(), "invalid_client") {
		t.Errorf("error %q does not name the OAuth error code", err)
	}
	if !strings.Contains(err.Error(), "unknown client id") {
		t.Errorf("error %q does not carry the description", err)
	}
}
