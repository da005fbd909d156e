package auth

import (
	"context"
	"fmt"
	"net/http"
)

// StaticTokenProvider returns a pre-configured token, typically the
// CASHMERE_API_KEY issued out of band.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a provider around the given token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// Token returns the static token without any network calls.
func (p *StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return p.token, nil
}

// InjectHeader sets the Authorization header from the static token.
func (p *StaticTokenProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.token))
	return nil
}

// Close is a no-op for static token providers.
func (p *StaticTokenProvider) Close() error {
	return nil
}
