package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StorageKind selects the backend that holds contact-form rate counters
type StorageKind string

const (
	StorageKindMemory    StorageKind = "memory"
	StorageKindFirestore StorageKind = "firestore"
	StorageKindPostgres  StorageKind = "postgres"
)

const (
	DefaultAddr                = ":8080"
	DefaultScope               = "repo"
	DefaultExchangeTimeout     = 10 * time.Second
	DefaultWebhookTimeout      = 10 * time.Second
	DefaultMaxDeliveries       = 16
	DefaultClientIPHeader      = "CF-Connecting-IP"
	DefaultRateLimit           = 3
	DefaultRateWindow          = 60 * time.Second
	DefaultFirestoreCollection = "contact_rate_limits"
	DefaultCleanupInterval     = 5 * time.Minute
)

// OAuthConfig holds the GitHub OAuth app credentials used by the CMS relay.
//
// ClientID and ClientSecret may legitimately be empty after loading: the
// handlers report the missing values on every request instead of refusing to
// start, so a misconfigured deployment still answers with a diagnostic.
type OAuthConfig struct {
	ClientID        string        `json:"clientId"`
	ClientSecret    Secret        `json:"clientSecret"`
	Scope           string        `json:"scope"`
	AuthorizeURL    string        `json:"authorizeUrl,omitempty"` // Optional: override for GitHub Enterprise or tests
	TokenURL        string        `json:"tokenUrl,omitempty"`
	ExchangeTimeout time.Duration `json:"exchangeTimeout"`
}

// RateLimitConfig bounds contact submissions per source address
type RateLimitConfig struct {
	Storage             StorageKind   `json:"storage"`
	Limit               int           `json:"limit"`
	Window              time.Duration `json:"window"`
	KeySalt             Secret        `json:"keySalt,omitempty"`
	CleanupInterval     time.Duration `json:"cleanupInterval,omitempty"`
	GCPProject          string        `json:"gcpProject,omitempty"`
	FirestoreDatabase   string        `json:"firestoreDatabase,omitempty"`
	FirestoreCollection string        `json:"firestoreCollection,omitempty"`
	DatabaseURL         Secret        `json:"databaseUrl,omitempty"`
}

// ContactConfig configures the contact form endpoint
type ContactConfig struct {
	WebhookURL     string           `json:"webhookUrl,omitempty"`
	WebhookTimeout time.Duration    `json:"webhookTimeout"`
	MaxDeliveries  int64            `json:"maxDeliveries"`
	ClientIPHeader string           `json:"clientIpHeader"`
	AllowedOrigins []string         `json:"allowedOrigins,omitempty"` // CORS; empty means same-origin only
	RateLimit      *RateLimitConfig `json:"rateLimit,omitempty"`      // nil disables rate limiting
}

// Config represents the config structure with resolved values
type Config struct {
	Addr    string        `json:"addr"`
	BaseURL string        `json:"baseURL,omitempty"` // Empty: derive the origin from each request
	OAuth   OAuthConfig   `json:"oauth"`
	Contact ContactConfig `json:"contact"`
}

// ApplyDefaults fills zero values with their defaults
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.OAuth.Scope == "" {
		c.OAuth.Scope = DefaultScope
	}
	if c.OAuth.ExchangeTimeout == 0 {
		c.OAuth.ExchangeTimeout = DefaultExchangeTimeout
	}
	if c.Contact.WebhookTimeout == 0 {
		c.Contact.WebhookTimeout = DefaultWebhookTimeout
	}
	if c.Contact.MaxDeliveries == 0 {
		c.Contact.MaxDeliveries = DefaultMaxDeliveries
	}
	if c.Contact.ClientIPHeader == "" {
		c.Contact.ClientIPHeader = DefaultClientIPHeader
	}
	if rl := c.Contact.RateLimit; rl != nil {
		if rl.Limit == 0 {
			rl.Limit = DefaultRateLimit
		}
		if rl.Window == 0 {
			rl.Window = DefaultRateWindow
		}
		if rl.CleanupInterval == 0 {
			rl.CleanupInterval = DefaultCleanupInterval
		}
		if rl.Storage == StorageKindFirestore && rl.FirestoreCollection == "" {
			rl.FirestoreCollection = DefaultFirestoreCollection
		}
	}
}

// ParseConfigValue parses a JSON value that is either a plain string or an
// {"$env": "VAR"} reference. An unset variable is an error.
func ParseConfigValue(raw json.RawMessage) (string, error) {
	value, set, err := parseConfigValue(raw)
	if err != nil {
		return "", err
	}
	if !set {
		var ref map[string]string
		_ = json.Unmarshal(raw, &ref)
		return "", fmt.Errorf("environment variable %s not set", ref["$env"])
	}
	return value, nil
}

// ParseOptionalConfigValue is like ParseConfigValue but resolves an unset
// variable to "".
func ParseOptionalConfigValue(raw json.RawMessage) (string, error) {
	value, _, err := parseConfigValue(raw)
	return value, err
}

func parseConfigValue(raw json.RawMessage) (value string, set bool, err error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, true, nil
	}

	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", false, fmt.Errorf("config value must be string or reference object")
	}

	envVar, ok := ref["$env"]
	if !ok {
		return "", false, fmt.Errorf("unknown reference type in config value")
	}

	value, set = os.LookupEnv(envVar)
	if !set || value == "" {
		return "", false, nil
	}
	// Strip surrounding quotes if present (only matching pairs)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return value, true, nil
}

// isEnvRef reports whether raw is an {"$env": ...} object
func isEnvRef(raw json.RawMessage) bool {
	var ref map[string]any
	if err := json.Unmarshal(raw, &ref); err != nil {
		return false
	}
	_, ok := ref["$env"]
	return ok
}
