package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretRedaction(t *testing.T) {
	tests := []struct {
		name   string
		secret Secret
		want   string
	}{
		{name: "non-empty secret", secret: Secret("gh-oauth-secret"), want: "***"},
		{name: "empty secret", secret: Secret(""), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.secret.String())
			assert.Equal(t, "value: "+tt.want, fmt.Sprintf("value: %s", tt.secret))
		})
	}
}

func TestSecretInConfig(t *testing.T) {
	cfg := Config{
		Addr: ":8080",
		OAuth: OAuthConfig{
			ClientID:     "Iv1.public",
			ClientSecret: Secret("gh-oauth-secret"),
		},
		Contact: ContactConfig{
			RateLimit: &RateLimitConfig{
				Storage:     StorageKindPostgres,
				DatabaseURL: Secret("postgres://user:pw@db/site"),
			},
		},
	}

	str := fmt.Sprintf("%+v", cfg.OAuth)
	assert.NotContains(t, str, "gh-oauth-secret")
	assert.Contains(t, str, "Iv1.public")

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "gh-oauth-secret"), "JSON leaked client secret: %s", data)
	assert.False(t, strings.Contains(string(data), "user:pw"), "JSON leaked database URL: %s", data)
}
