package main

import (
	"testing"

	"github.com/cashmeremcp/surge/internal/auth"
	"github.com/cashmeremcp/surge/internal/config"
	"github.com/cashmeremcp/surge/internal/runner"
)

func TestBuildAuthProvider(t *testing.T) {
	if p := buildAuthProvider(&config.Config{}); p != nil {
		t.Errorf("no credentials should produce no provider, got %T", p)
	}

	p := buildAuthProvider(&config.Config{APIKey: "cm-key"})
	if _, ok := p.(*auth.StaticTokenProvider); !ok {
		t.Errorf("api key should produce a static provider, got %T", p)
	}

	p = buildAuthProvider(&config.Config{
		OAuth: config.OAuthConfig{
			TokenURL: "https://auth.cashmere.example/token",
			ClientID: "surge",
		},
	})
	if _, ok := p.(*auth.OAuth2ClientCredentialsProvider); !ok {
		t.Errorf("oauth config should produce a client-credentials provider, got %T", p)
	}

	// A static key wins when both are configured.
	p = buildAuthProvider(&config.Config{
		APIKey: "cm-key",
		OAuth:  config.OAuthConfig{TokenURL: "https://auth.cashmere.example/token"},
	})
	if _, ok := p.(*auth.StaticTokenProvider); !ok {
		t.Errorf("api key should take precedence, got %T", p)
	}
}

func TestToRunnerMode(t *testing.T) {
	if got := toRunnerMode(config.ModeDuration); got != runner.ModeDuration {
		t.Errorf("duration mode mapped to %v", got)
	}
	if got := toRunnerMode(config.ModeCount); got != runner.ModeCount {
		t.Errorf("count mode mapped to %v", got)
	}
}
