package idp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yitumuglobal/site-api/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const userAgent = "site-api-decap-oauth"

// GitHubProvider implements Provider for GitHub OAuth apps.
type GitHubProvider struct {
	config     oauth2.Config
	httpClient *http.Client
}

// NewGitHubProvider creates a GitHub provider from the OAuth config.
// AuthorizeURL and TokenURL override github.Endpoint when set.
func NewGitHubProvider(cfg config.OAuthConfig) *GitHubProvider {
	endpoint := oauth2.Endpoint{
		AuthURL:  github.Endpoint.AuthURL,
		TokenURL: github.Endpoint.TokenURL,
		// GitHub takes credentials in the body; skip the header probe
		AuthStyle: oauth2.AuthStyleInParams,
	}
	if cfg.AuthorizeURL != "" {
		endpoint.AuthURL = cfg.AuthorizeURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	timeout := cfg.ExchangeTimeout
	if timeout <= 0 {
		timeout = config.DefaultExchangeTimeout
	}

	return &GitHubProvider{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: string(cfg.ClientSecret),
			Endpoint:     endpoint,
		},
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &userAgentTransport{
				base:      http.DefaultTransport,
				userAgent: userAgent,
			},
		},
	}
}

// Type returns the provider type.
func (p *GitHubProvider) Type() string {
	return "github"
}

func (p *GitHubProvider) withRedirect(redirectURI string) *oauth2.Config {
	c := p.config
	c.RedirectURL = redirectURI
	return &c
}

// AuthURL generates the authorization URL. scope is passed through verbatim;
// GitHub accepts both comma and space separated lists.
func (p *GitHubProvider) AuthURL(state, redirectURI, scope string) string {
	c := p.withRedirect(redirectURI)
	if scope != "" {
		c.Scopes = []string{scope}
	}
	return c.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for an access token.
//
// GitHub answers failed exchanges with HTTP 200 and an "error" field;
// x/oauth2 reports those, non-2xx statuses and a missing access_token alike
// as errors.
func (p *GitHubProvider) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.withRedirect(redirectURI).Exchange(ctx, code)
	if err != nil {
		return "", describeExchangeError(err)
	}
	return token.AccessToken, nil
}

func describeExchangeError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("GitHub token exchange failed: %w", err)
	}

	if re.ErrorCode != "" {
		msg := re.ErrorCode
		if re.ErrorDescription != "" {
			msg = re.ErrorDescription
		}
		return fmt.Errorf("GitHub token exchange error: %s", msg)
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	body := strings.TrimSpace(string(re.Body))
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Errorf("GitHub token exchange failed: %d %s", status, body)
}
