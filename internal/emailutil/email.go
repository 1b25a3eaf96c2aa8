package emailutil

import (
	"regexp"
	"strings"
)

// addressPattern is deliberately loose: something@something.tld, no spaces
var addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValid reports whether email has the shape of an address
func IsValid(email string) bool {
	return addressPattern.MatchString(email)
}

// Domain returns the part after the @, or "" when email is not a single address
func Domain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(parts[1])
}
