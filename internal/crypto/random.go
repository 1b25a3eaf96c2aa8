package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// StateTokenBytes is the entropy of an OAuth state token
const StateTokenBytes = 24

// GenerateSecureToken returns n bytes from crypto/rand as unpadded base64url.
// The alphabet is [A-Za-z0-9_-], so the result can be placed in a query
// string or a cookie value without any escaping.
func GenerateSecureToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateStateToken creates an anti-forgery token for the OAuth state parameter
func GenerateStateToken() (string, error) {
	return GenerateSecureToken(StateTokenBytes)
}
