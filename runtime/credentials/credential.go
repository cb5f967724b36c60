// Package credentials applies authentication to the Speechmatics RT
// WebSocket upgrade request: either a Bearer Authorization header or a
// `jwt` query parameter, with support for refreshing short-lived tokens.
package credentials

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Credential applies authentication to the HTTP request used for the RT
// WebSocket upgrade (component D's connect operation builds a standard
// http.Request for this purpose before handing its header/URL to the
// websocket dialer).
type Credential interface {
	// Apply adds authentication to the request: as a header, a query
	// parameter, or both, depending on the implementation.
	Apply(ctx context.Context, req *http.Request) error

	// Type returns the credential type identifier (e.g., "api_key", "jwt", "none").
	Type() string
}

// APIKeyCredential implements header-based API key authentication.
type APIKeyCredential struct {
	apiKey     string
	headerName string
	prefix     string // e.g. "Bearer "
}

// APIKeyOption configures an APIKeyCredential.
type APIKeyOption func(*APIKeyCredential)

// WithHeaderName sets the header name for the API key.
func WithHeaderName(name string) APIKeyOption {
	return func(c *APIKeyCredential) {
		c.headerName = name
	}
}

// WithPrefix sets a custom prefix for the API key.
func WithPrefix(prefix string) APIKeyOption {
	return func(c *APIKeyCredential) {
		c.prefix = prefix
	}
}

// NewAPIKeyCredential creates an API key credential. By default it sets
// "Authorization: Bearer <key>", matching the Speechmatics RT API.
func NewAPIKeyCredential(apiKey string, opts ...APIKeyOption) *APIKeyCredential {
	c := &APIKeyCredential{
		apiKey:     apiKey,
		headerName: "Authorization",
		prefix:     "Bearer ",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Apply adds the API key to the request header.
func (c *APIKeyCredential) Apply(_ context.Context, req *http.Request) error {
	if c.apiKey != "" {
		req.Header.Set(c.headerName, c.prefix+c.apiKey)
	}
	return nil
}

// Type returns "api_key".
func (c *APIKeyCredential) Type() string {
	return "api_key"
}

// APIKey returns the raw API key value.
func (c *APIKeyCredential) APIKey() string {
	return c.apiKey
}

// JWTQueryCredential applies a short-lived token as a `jwt` query
// parameter, for deployments that cannot set custom headers on the
// WebSocket upgrade (e.g. browser clients).
type JWTQueryCredential struct {
	token string
	param string
}

// NewJWTQueryCredential creates a query-parameter credential using the
// given token, under the `jwt` parameter name.
func NewJWTQueryCredential(token string) *JWTQueryCredential {
	return &JWTQueryCredential{token: token, param: "jwt"}
}

// Apply adds the token as a query parameter on the request URL.
func (c *JWTQueryCredential) Apply(_ context.Context, req *http.Request) error {
	if c.token == "" {
		return nil
	}
	q := req.URL.Query()
	q.Set(c.param, c.token)
	req.URL.RawQuery = q.Encode()
	return nil
}

// Type returns "jwt".
func (c *JWTQueryCredential) Type() string {
	return "jwt"
}

// TokenFunc fetches a fresh short-lived token and its expiry.
type TokenFunc func(ctx context.Context) (token string, expiresAt time.Time, err error)

// RefreshableCredential wraps a TokenFunc, calling it again whenever the
// cached token is within refreshSkew of expiring. This is the mechanism
// the spec's auth layer uses for rotating short-lived JWTs.
type RefreshableCredential struct {
	mu         sync.Mutex
	fetch      TokenFunc
	refreshGap time.Duration
	inner      Credential

	token     string
	expiresAt time.Time
}

// NewRefreshableCredential builds a RefreshableCredential. makeInner wraps
// the resolved token string into a concrete Credential (e.g.
// NewAPIKeyCredential or NewJWTQueryCredential).
func NewRefreshableCredential(fetch TokenFunc, refreshGap time.Duration, makeInner func(token string) Credential) *RefreshableCredential {
	return &RefreshableCredential{
		fetch:      fetch,
		refreshGap: refreshGap,
		inner:      makeInner(""),
	}
}

// Apply refreshes the token if it is missing or close to expiry, then
// delegates to the wrapped credential.
func (c *RefreshableCredential) Apply(ctx context.Context, req *http.Request) error {
	c.mu.Lock()
	needsRefresh := c.token == "" || time.Now().Add(c.refreshGap).After(c.expiresAt)
	c.mu.Unlock()

	if needsRefresh {
		token, expiresAt, err := c.fetch(ctx)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.token = token
		c.expiresAt = expiresAt
		c.mu.Unlock()
	}

	c.mu.Lock()
	inner := c.rebuild()
	c.mu.Unlock()

	return inner.Apply(ctx, req)
}

func (c *RefreshableCredential) rebuild() Credential {
	switch v := c.inner.(type) {
	case *APIKeyCredential:
		return NewAPIKeyCredential(c.token, WithHeaderName(v.headerName), WithPrefix(v.prefix))
	case *JWTQueryCredential:
		return NewJWTQueryCredential(c.token)
	default:
		return c.inner
	}
}

// Type returns the wrapped credential's type.
func (c *RefreshableCredential) Type() string {
	return c.inner.Type()
}

// NoOpCredential applies no authentication. Used for local/mock endpoints.
type NoOpCredential struct{}

// Apply does nothing.
func (c *NoOpCredential) Apply(_ context.Context, _ *http.Request) error {
	return nil
}

// Type returns "none".
func (c *NoOpCredential) Type() string {
	return "none"
}
