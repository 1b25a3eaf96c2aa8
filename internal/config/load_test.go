package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_GITHUB_CLIENT_ID", "Iv1.abc")
	t.Setenv("TEST_GITHUB_CLIENT_SECRET", "s3cret")
	t.Setenv("TEST_WEBHOOK", "https://hooks.example.com/contact")
	t.Setenv("TEST_SALT", "pepper")

	path := writeConfig(t, `{
		"version": "v1",
		"addr": ":9090",
		"baseURL": "https://www.example.com",
		"oauth": {
			"clientId": {"$env": "TEST_GITHUB_CLIENT_ID"},
			"clientSecret": {"$env": "TEST_GITHUB_CLIENT_SECRET"},
			"exchangeTimeout": "5s"
		},
		"contact": {
			"webhookUrl": {"$env": "TEST_WEBHOOK"},
			"rateLimit": {"storage": "memory", "keySalt": {"$env": "TEST_SALT"}}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "https://www.example.com", cfg.BaseURL)
	assert.Equal(t, "Iv1.abc", cfg.OAuth.ClientID)
	assert.Equal(t, Secret("s3cret"), cfg.OAuth.ClientSecret)
	assert.Equal(t, DefaultScope, cfg.OAuth.Scope)
	assert.Equal(t, 5*time.Second, cfg.OAuth.ExchangeTimeout)
	assert.Equal(t, "https://hooks.example.com/contact", cfg.Contact.WebhookURL)
	assert.Equal(t, DefaultWebhookTimeout, cfg.Contact.WebhookTimeout)
	assert.Equal(t, DefaultClientIPHeader, cfg.Contact.ClientIPHeader)

	require.NotNil(t, cfg.Contact.RateLimit)
	assert.Equal(t, StorageKindMemory, cfg.Contact.RateLimit.Storage)
	assert.Equal(t, DefaultRateLimit, cfg.Contact.RateLimit.Limit)
	assert.Equal(t, DefaultRateWindow, cfg.Contact.RateLimit.Window)
	assert.Equal(t, Secret("pepper"), cfg.Contact.RateLimit.KeySalt)
}

func TestLoad_MissingCredentialsAreNotFatal(t *testing.T) {
	path := writeConfig(t, `{
		"version": "v1",
		"oauth": {
			"clientId": {"$env": "TEST_UNSET_CLIENT_ID"},
			"clientSecret": {"$env": "TEST_UNSET_CLIENT_SECRET"}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.OAuth.ClientID)
	assert.Empty(t, cfg.OAuth.ClientSecret)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Nil(t, cfg.Contact.RateLimit)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expectError string
	}{
		{
			name:        "missing version",
			content:     `{"oauth": {}}`,
			expectError: "config version is required",
		},
		{
			name:        "wrong version",
			content:     `{"version": "v0", "oauth": {}}`,
			expectError: "unsupported config version",
		},
		{
			name:        "plain text client secret",
			content:     `{"version": "v1", "oauth": {"clientSecret": "hunter2"}}`,
			expectError: "clientSecret must use",
		},
		{
			name:        "bad duration",
			content:     `{"version": "v1", "oauth": {"exchangeTimeout": "soon"}}`,
			expectError: "parsing exchangeTimeout",
		},
		{
			name:        "unknown storage",
			content:     `{"version": "v1", "oauth": {}, "contact": {"rateLimit": {"storage": "redis"}}}`,
			expectError: `unknown storage "redis"`,
		},
		{
			name:        "firestore without project",
			content:     `{"version": "v1", "oauth": {}, "contact": {"rateLimit": {"storage": "firestore"}}}`,
			expectError: "gcpProject is required",
		},
		{
			name:        "relative base url",
			content:     `{"version": "v1", "baseURL": "/site", "oauth": {}}`,
			expectError: "baseURL must be an absolute",
		},
		{
			name:        "webhook env unset is fine but bad scheme is not",
			content:     `{"version": "v1", "oauth": {}, "contact": {"webhookUrl": "ftp://hooks.example.com"}}`,
			expectError: "contact.webhookUrl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GITHUB_CLIENT_ID", "Iv1.env")
	t.Setenv("GITHUB_CLIENT_SECRET", "env-secret")
	t.Setenv("CONTACT_KV", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/site")
	t.Setenv("CONTACT_WEBHOOK_URL", "")
	t.Setenv("SITE_API_ADDR", "")
	t.Setenv("CONTACT_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, "Iv1.env", cfg.OAuth.ClientID)
	assert.Equal(t, Secret("env-secret"), cfg.OAuth.ClientSecret)
	assert.Empty(t, cfg.Contact.WebhookURL)
	require.NotNil(t, cfg.Contact.RateLimit)
	assert.Equal(t, StorageKindPostgres, cfg.Contact.RateLimit.Storage)
	assert.Equal(t, Secret("postgres://localhost/site"), cfg.Contact.RateLimit.DatabaseURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Contact.AllowedOrigins)
}

func TestLoadFromEnv_NoKV(t *testing.T) {
	t.Setenv("CONTACT_KV", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Nil(t, cfg.Contact.RateLimit)
}

func TestParseConfigValue(t *testing.T) {
	t.Setenv("TEST_QUOTED", `"quoted-value"`)

	v, err := ParseConfigValue([]byte(`"literal"`))
	require.NoError(t, err)
	assert.Equal(t, "literal", v)

	v, err = ParseConfigValue([]byte(`{"$env": "TEST_QUOTED"}`))
	require.NoError(t, err)
	assert.Equal(t, "quoted-value", v)

	_, err = ParseConfigValue([]byte(`{"$env": "TEST_DEFINITELY_UNSET"}`))
	assert.ErrorContains(t, err, "TEST_DEFINITELY_UNSET not set")

	v, err = ParseOptionalConfigValue([]byte(`{"$env": "TEST_DEFINITELY_UNSET"}`))
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = ParseConfigValue([]byte(`{"$file": "/etc/passwd"}`))
	assert.ErrorContains(t, err, "unknown reference type")
}
