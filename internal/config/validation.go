package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ConfigVersion is the only accepted value of the top-level "version" field
const ConfigVersion = "v1"

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

func (v *ValidationResult) addError(path, format string, args ...any) {
	v.Errors = append(v.Errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *ValidationResult) addWarning(path, format string, args ...any) {
	v.Warnings = append(v.Warnings, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// ValidateFile validates a config file structure without requiring env vars
func ValidateFile(path string) (*ValidationResult, error) {
	result := &ValidationResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		result.addError("", "invalid JSON: %v", err)
		return result, nil
	}

	checkBashStyleSyntax(rawConfig, "", result)

	version, ok := rawConfig["version"].(string)
	if !ok {
		result.addError("version", "version field is required. Hint: Add \"version\": %q", ConfigVersion)
	} else if version != ConfigVersion {
		result.addError("version", "unsupported version '%s' - use '%s'", version, ConfigVersion)
	}

	if _, ok := rawConfig["addr"]; !ok {
		result.addWarning("addr", "addr not set, defaulting to %q", DefaultAddr)
	}

	validateOAuthStructure(rawConfig, result)
	validateContactStructure(rawConfig, result)

	return result, nil
}

func validateOAuthStructure(rawConfig map[string]any, result *ValidationResult) {
	oauth, ok := rawConfig["oauth"].(map[string]any)
	if !ok {
		result.addError("oauth", "oauth field is required and must be an object")
		return
	}

	for _, field := range []string{"clientId", "clientSecret"} {
		if _, ok := oauth[field]; !ok {
			result.addWarning("oauth."+field, "%s is not set; /api/auth and /api/callback will answer with a configuration error", field)
		}
	}
	if secret, ok := oauth["clientSecret"]; ok {
		if _, isString := secret.(string); isString {
			result.addError("oauth.clientSecret", "clientSecret must use environment variable reference for security")
		}
	}
	validateDurationField(oauth, "exchangeTimeout", "oauth.exchangeTimeout", result)
}

func validateContactStructure(rawConfig map[string]any, result *ValidationResult) {
	raw, exists := rawConfig["contact"]
	if !exists {
		return
	}
	contact, ok := raw.(map[string]any)
	if !ok {
		result.addError("contact", "contact must be an object")
		return
	}
	validateDurationField(contact, "webhookTimeout", "contact.webhookTimeout", result)

	rl, exists := contact["rateLimit"]
	if !exists {
		result.addWarning("contact.rateLimit", "rate limiting is disabled")
		return
	}
	rateLimit, ok := rl.(map[string]any)
	if !ok {
		result.addError("contact.rateLimit", "rateLimit must be an object")
		return
	}

	storage, _ := rateLimit["storage"].(string)
	switch StorageKind(storage) {
	case StorageKindMemory:
		result.addWarning("contact.rateLimit.storage", "memory counters are per process and reset on restart")
	case StorageKindFirestore:
		if _, ok := rateLimit["gcpProject"]; !ok {
			result.addError("contact.rateLimit.gcpProject", "gcpProject is required for firestore storage")
		}
	case StorageKindPostgres:
		if _, ok := rateLimit["databaseUrl"]; !ok {
			result.addError("contact.rateLimit.databaseUrl", "databaseUrl is required for postgres storage")
		}
	default:
		result.addError("contact.rateLimit.storage", "storage must be one of memory, firestore, postgres (got %q)", storage)
	}

	for _, field := range []string{"keySalt", "databaseUrl"} {
		if v, ok := rateLimit[field]; ok {
			if _, isString := v.(string); isString {
				result.addError("contact.rateLimit."+field, "%s must use environment variable reference for security", field)
			}
		}
	}
	validateDurationField(rateLimit, "window", "contact.rateLimit.window", result)
	validateDurationField(rateLimit, "cleanupInterval", "contact.rateLimit.cleanupInterval", result)
}

func validateDurationField(obj map[string]any, field, path string, result *ValidationResult) {
	v, ok := obj[field]
	if !ok {
		return
	}
	s, ok := v.(string)
	if !ok {
		result.addError(path, "%s must be a duration string like \"10s\"", field)
		return
	}
	if _, err := time.ParseDuration(s); err != nil {
		result.addError(path, "invalid duration %q: %v", s, err)
	}
}

// checkBashStyleSyntax warns about $VAR strings that were meant as env references
func checkBashStyleSyntax(value any, path string, result *ValidationResult) {
	bashStyleRegex := regexp.MustCompile(`\$\{?[A-Z_][A-Z0-9_]*\}?`)

	switch v := value.(type) {
	case string:
		for _, match := range bashStyleRegex.FindAllString(v, -1) {
			varName := strings.Trim(match, "${}")
			result.addWarning(path, "found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", match, varName)
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; hasEnv {
			return
		}
		for key, val := range v {
			newPath := key
			if path != "" {
				newPath = path + "." + key
			}
			checkBashStyleSyntax(val, newPath, result)
		}
	case []any:
		for i, item := range v {
			checkBashStyleSyntax(item, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.Addr == "" {
		return fmt.Errorf("addr is required")
	}

	if config.BaseURL != "" {
		u, err := url.Parse(config.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("baseURL must be an absolute http(s) URL, got %q", config.BaseURL)
		}
	}

	if config.OAuth.ExchangeTimeout < 0 {
		return fmt.Errorf("oauth.exchangeTimeout cannot be negative")
	}
	for name, raw := range map[string]string{
		"oauth.authorizeUrl": config.OAuth.AuthorizeURL,
		"oauth.tokenUrl":     config.OAuth.TokenURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}

	contact := config.Contact
	if contact.WebhookURL != "" {
		u, err := url.Parse(contact.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("contact.webhookUrl must be an absolute http(s) URL")
		}
	}
	if contact.WebhookTimeout < 0 {
		return fmt.Errorf("contact.webhookTimeout cannot be negative")
	}
	if contact.MaxDeliveries < 0 {
		return fmt.Errorf("contact.maxDeliveries cannot be negative")
	}
	for _, origin := range contact.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" || (u.Path != "" && u.Path != "/") {
			return fmt.Errorf("contact.allowedOrigins: %q is not an origin", origin)
		}
	}

	if rl := contact.RateLimit; rl != nil {
		if err := validateRateLimit(rl); err != nil {
			return fmt.Errorf("contact.rateLimit: %w", err)
		}
	}

	return nil
}

func validateRateLimit(rl *RateLimitConfig) error {
	if rl.Limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}
	if rl.Window < 0 {
		return fmt.Errorf("window cannot be negative")
	}
	if rl.CleanupInterval < 0 {
		return fmt.Errorf("cleanupInterval cannot be negative")
	}
	if len(rl.KeySalt) > blake2b.Size {
		return fmt.Errorf("keySalt must be at most %d bytes, got %d", blake2b.Size, len(rl.KeySalt))
	}

	switch rl.Storage {
	case StorageKindMemory:
	case StorageKindFirestore:
		if rl.GCPProject == "" {
			return fmt.Errorf("gcpProject is required for firestore storage")
		}
	case StorageKindPostgres:
		if rl.DatabaseURL == "" {
			return fmt.Errorf("databaseUrl is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage %q", rl.Storage)
	}
	return nil
}
