package config

import (
	"encoding/json"
	"fmt"
	"time"
)

func parseDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", name, err)
	}
	return d, nil
}

// parseSecret resolves a secret field, which must be an env reference
func parseSecret(name string, raw json.RawMessage, optional bool) (Secret, error) {
	if raw == nil {
		return "", nil
	}
	if !isEnvRef(raw) {
		return "", fmt.Errorf("%s must use {\"$env\": \"VAR_NAME\"} format", name)
	}
	parse := ParseConfigValue
	if optional {
		parse = ParseOptionalConfigValue
	}
	value, err := parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", name, err)
	}
	return Secret(value), nil
}

// UnmarshalJSON implements custom unmarshaling for Config
func (c *Config) UnmarshalJSON(data []byte) error {
	type rawConfig struct {
		Addr    json.RawMessage `json:"addr"`
		BaseURL json.RawMessage `json:"baseURL"`
		OAuth   OAuthConfig     `json:"oauth"`
		Contact ContactConfig   `json:"contact"`
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.OAuth = raw.OAuth
	c.Contact = raw.Contact

	if raw.Addr != nil {
		addr, err := ParseConfigValue(raw.Addr)
		if err != nil {
			return fmt.Errorf("parsing addr: %w", err)
		}
		c.Addr = addr
	}
	if raw.BaseURL != nil {
		baseURL, err := ParseOptionalConfigValue(raw.BaseURL)
		if err != nil {
			return fmt.Errorf("parsing baseURL: %w", err)
		}
		c.BaseURL = baseURL
	}
	return nil
}

// UnmarshalJSON implements custom unmarshaling for OAuthConfig.
// Unset credential variables resolve to "" so the handlers can report them.
func (o *OAuthConfig) UnmarshalJSON(data []byte) error {
	type rawOAuth struct {
		ClientID        json.RawMessage `json:"clientId"`
		ClientSecret    json.RawMessage `json:"clientSecret"`
		Scope           string          `json:"scope"`
		AuthorizeURL    string          `json:"authorizeUrl"`
		TokenURL        string          `json:"tokenUrl"`
		ExchangeTimeout string          `json:"exchangeTimeout"`
	}

	var raw rawOAuth
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	o.Scope = raw.Scope
	o.AuthorizeURL = raw.AuthorizeURL
	o.TokenURL = raw.TokenURL

	timeout, err := parseDuration("exchangeTimeout", raw.ExchangeTimeout)
	if err != nil {
		return err
	}
	o.ExchangeTimeout = timeout

	if raw.ClientID != nil {
		clientID, err := ParseOptionalConfigValue(raw.ClientID)
		if err != nil {
			return fmt.Errorf("parsing clientId: %w", err)
		}
		o.ClientID = clientID
	}

	secret, err := parseSecret("clientSecret", raw.ClientSecret, true)
	if err != nil {
		return err
	}
	o.ClientSecret = secret

	return nil
}

// UnmarshalJSON implements custom unmarshaling for ContactConfig
func (c *ContactConfig) UnmarshalJSON(data []byte) error {
	type rawContact struct {
		WebhookURL     json.RawMessage  `json:"webhookUrl"`
		WebhookTimeout string           `json:"webhookTimeout"`
		MaxDeliveries  int64            `json:"maxDeliveries"`
		ClientIPHeader string           `json:"clientIpHeader"`
		AllowedOrigins []string         `json:"allowedOrigins"`
		RateLimit      *RateLimitConfig `json:"rateLimit"`
	}

	var raw rawContact
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.MaxDeliveries = raw.MaxDeliveries
	c.ClientIPHeader = raw.ClientIPHeader
	c.AllowedOrigins = raw.AllowedOrigins
	c.RateLimit = raw.RateLimit

	timeout, err := parseDuration("webhookTimeout", raw.WebhookTimeout)
	if err != nil {
		return err
	}
	c.WebhookTimeout = timeout

	if raw.WebhookURL != nil {
		// Optional: forwarding is simply off when the variable is unset
		webhookURL, err := ParseOptionalConfigValue(raw.WebhookURL)
		if err != nil {
			return fmt.Errorf("parsing webhookUrl: %w", err)
		}
		c.WebhookURL = webhookURL
	}
	return nil
}

// UnmarshalJSON implements custom unmarshaling for RateLimitConfig
func (r *RateLimitConfig) UnmarshalJSON(data []byte) error {
	type rawRateLimit struct {
		Storage             StorageKind     `json:"storage"`
		Limit               int             `json:"limit"`
		Window              string          `json:"window"`
		KeySalt             json.RawMessage `json:"keySalt"`
		CleanupInterval     string          `json:"cleanupInterval"`
		GCPProject          json.RawMessage `json:"gcpProject"`
		FirestoreDatabase   string          `json:"firestoreDatabase"`
		FirestoreCollection string          `json:"firestoreCollection"`
		DatabaseURL         json.RawMessage `json:"databaseUrl"`
	}

	var raw rawRateLimit
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Storage = raw.Storage
	r.Limit = raw.Limit
	r.FirestoreDatabase = raw.FirestoreDatabase
	r.FirestoreCollection = raw.FirestoreCollection

	window, err := parseDuration("window", raw.Window)
	if err != nil {
		return err
	}
	r.Window = window

	interval, err := parseDuration("cleanupInterval", raw.CleanupInterval)
	if err != nil {
		return err
	}
	r.CleanupInterval = interval

	if raw.GCPProject != nil {
		project, err := ParseConfigValue(raw.GCPProject)
		if err != nil {
			return fmt.Errorf("parsing gcpProject: %w", err)
		}
		r.GCPProject = project
	}

	salt, err := parseSecret("keySalt", raw.KeySalt, false)
	if err != nil {
		return err
	}
	r.KeySalt = salt

	dbURL, err := parseSecret("databaseUrl", raw.DatabaseURL, false)
	if err != nil {
		return err
	}
	r.DatabaseURL = dbURL

	return nil
}
