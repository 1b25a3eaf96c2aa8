package idp

import (
	"context"
	"net/http"
)

// Provider abstracts the OAuth provider the CMS signs in with.
//
// The relay never looks at who the user is: the access token is handed to the
// CMS, which talks to the provider's API itself.
type Provider interface {
	// Type returns the provider identifier used in handshake messages (e.g. "github").
	Type() string

	// AuthURL builds the provider authorization URL for one login attempt.
	AuthURL(state, redirectURI, scope string) string

	// ExchangeCode trades an authorization code for an access token.
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
}

// userAgentTransport stamps outbound provider requests; GitHub rejects API
// calls without a User-Agent.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}
