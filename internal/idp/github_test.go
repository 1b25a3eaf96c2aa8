package idp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yitumuglobal/site-api/internal/config"
)

func testConfig(tokenURL string) config.OAuthConfig {
	return config.OAuthConfig{
		ClientID:        "client-id",
		ClientSecret:    config.Secret("client-secret"),
		TokenURL:        tokenURL,
		ExchangeTimeout: 5 * time.Second,
	}
}

func TestGitHubProvider_Type(t *testing.T) {
	provider := NewGitHubProvider(testConfig(""))
	assert.Equal(t, "github", provider.Type())
}

func TestGitHubProvider_AuthURL(t *testing.T) {
	provider := NewGitHubProvider(testConfig(""))

	authURL := provider.AuthURL("test-state", "https://www.example.com/api/callback", "repo,user")

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "/login/oauth/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "https://www.example.com/api/callback", q.Get("redirect_uri"))
	assert.Equal(t, "repo,user", q.Get("scope"))
	assert.Equal(t, "test-state", q.Get("state"))
}

func TestGitHubProvider_AuthURL_Override(t *testing.T) {
	cfg := testConfig("")
	cfg.AuthorizeURL = "https://ghe.example.com/login/oauth/authorize"
	provider := NewGitHubProvider(cfg)

	authURL := provider.AuthURL("s", "https://www.example.com/api/callback", "repo")
	assert.Contains(t, authURL, "https://ghe.example.com/login/oauth/authorize?")
}

func TestGitHubProvider_DefaultTimeout(t *testing.T) {
	cfg := testConfig("")
	cfg.ExchangeTimeout = 0
	provider := NewGitHubProvider(cfg)
	assert.Equal(t, config.DefaultExchangeTimeout, provider.httpClient.Timeout)
}

func TestGitHubProvider_ExchangeCode(t *testing.T) {
	var gotForm url.Values
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		gotUA = r.Header.Get("User-Agent")

		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]string{
			"access_token": "tok123",
			"token_type":   "bearer",
			"scope":        "repo",
		})
		require.NoError(t, err)
	}))
	defer server.Close()

	provider := NewGitHubProvider(testConfig(server.URL))

	token, err := provider.ExchangeCode(context.Background(), "the-code", "https://www.example.com/api/callback")
	require.NoError(t, err)
	assert.Equal(t, "tok123", token)

	assert.Equal(t, "the-code", gotForm.Get("code"))
	assert.Equal(t, "client-id", gotForm.Get("client_id"))
	assert.Equal(t, "client-secret", gotForm.Get("client_secret"))
	assert.Equal(t, "https://www.example.com/api/callback", gotForm.Get("redirect_uri"))
	assert.Equal(t, userAgent, gotUA)
}

func TestGitHubProvider_ExchangeCode_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		errContains string
	}{
		{
			name:        "error_field_with_200",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"error":"bad_verification_code","error_description":"The code passed is incorrect or expired."}`,
			errContains: "GitHub token exchange error: The code passed is incorrect or expired.",
		},
		{
			name:        "error_field_without_description",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"error":"incorrect_client_credentials"}`,
			errContains: "GitHub token exchange error: incorrect_client_credentials",
		},
		{
			name:        "non_success_status",
			status:      http.StatusBadGateway,
			contentType: "text/plain",
			body:        "upstream unavailable",
			errContains: "GitHub token exchange failed: 502",
		},
		{
			name:        "missing_access_token",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{}`,
			errContains: "missing access_token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := NewGitHubProvider(testConfig(server.URL))

			token, err := provider.ExchangeCode(context.Background(), "code", "https://www.example.com/api/callback")
			require.Error(t, err)
			assert.Empty(t, token)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestGitHubProvider_ExchangeCode_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	tokenURL := server.URL
	server.Close()

	provider := NewGitHubProvider(testConfig(tokenURL))

	_, err := provider.ExchangeCode(context.Background(), "code", "https://www.example.com/api/callback")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GitHub token exchange failed")
}
