package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/yitumuglobal/site-api/internal/log"
)

// Load loads and processes the config with immediate env var resolution
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	version, ok := rawConfig["version"].(string)
	if !ok {
		return Config{}, fmt.Errorf("config version is required")
	}
	if version != ConfigVersion {
		return Config{}, fmt.Errorf("unsupported config version: %s", version)
	}

	// The custom UnmarshalJSON methods resolve env vars immediately
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	return finish(config)
}

// LoadFromEnv builds the config from the process environment, for
// deployments that have no config file.
//
//	GITHUB_CLIENT_ID, GITHUB_CLIENT_SECRET  OAuth app credentials
//	CONTACT_KV                              rate limit storage: memory, firestore or postgres (unset disables)
//	CONTACT_KV_SALT                         optional key for hashing client addresses
//	CONTACT_WEBHOOK_URL                     optional submission webhook
//	CONTACT_ALLOWED_ORIGINS                 optional comma-separated CORS origins
//	SITE_API_ADDR, SITE_API_BASE_URL        listen address and public origin
//	GCP_PROJECT, FIRESTORE_DATABASE         firestore storage
//	DATABASE_URL                            postgres storage
func LoadFromEnv() (Config, error) {
	config := Config{
		Addr:    os.Getenv("SITE_API_ADDR"),
		BaseURL: os.Getenv("SITE_API_BASE_URL"),
		OAuth: OAuthConfig{
			ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret: Secret(os.Getenv("GITHUB_CLIENT_SECRET")),
		},
		Contact: ContactConfig{
			WebhookURL:     os.Getenv("CONTACT_WEBHOOK_URL"),
			AllowedOrigins: splitList(os.Getenv("CONTACT_ALLOWED_ORIGINS")),
		},
	}

	if kv := os.Getenv("CONTACT_KV"); kv != "" {
		config.Contact.RateLimit = &RateLimitConfig{
			Storage:           StorageKind(kv),
			KeySalt:           Secret(os.Getenv("CONTACT_KV_SALT")),
			GCPProject:        os.Getenv("GCP_PROJECT"),
			FirestoreDatabase: os.Getenv("FIRESTORE_DATABASE"),
			DatabaseURL:       Secret(os.Getenv("DATABASE_URL")),
		}
	}

	return finish(config)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func finish(config Config) (Config, error) {
	config.ApplyDefaults()

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	if config.OAuth.ClientID == "" || config.OAuth.ClientSecret == "" {
		log.LogWarnWithFields("config", "GitHub OAuth credentials incomplete; CMS login will report a configuration error", map[string]any{
			"clientIdSet":     config.OAuth.ClientID != "",
			"clientSecretSet": config.OAuth.ClientSecret != "",
		})
	}
	if config.Contact.RateLimit == nil {
		log.LogWarnWithFields("config", "Contact rate limiting disabled", nil)
	}

	return config, nil
}
