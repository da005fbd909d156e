// Package auth supplies bearer tokens for the MCP server, either from a
// pre-issued API key or an OAuth2 client-credentials exchange.
package auth

import (
	"context"
	"net/http"
)

// Provider obtains tokens and injects them into outgoing HTTP requests.
type Provider interface {
	// Token retrieves a valid authentication token, using cached values
	// when available and valid.
	Token(ctx context.Context) (string, error)

	// InjectHeader sets the Authorization header on the request.
	InjectHeader(ctx context.Context, req *http.Request) error

	// Close releases any resources held by the provider.
	Close() error
}
