package server

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Handshake status values carried in the authorization message
const (
	HandshakeSuccess = "success"
	HandshakeError   = "error"
)

// SuccessPayload is handed to the CMS after a completed login
type SuccessPayload struct {
	Token    string `json:"token"`
	Provider string `json:"provider"`
}

// ErrorPayload describes why a login failed
type ErrorPayload struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AnnounceMessage is the first message the popup sends to its opener
func AnnounceMessage(provider string) string {
	return "authorizing:" + provider
}

// AuthorizationMessage is sent once the opener has answered the announcement:
// authorization:<provider>:<status>:<json payload>
//
// The payload is kept free of HTML escapes; the page escapes the whole
// message when it embeds it.
func AuthorizationMessage(provider, status string, payload any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("encoding %s payload: %w", status, err)
	}
	return fmt.Sprintf("authorization:%s:%s:%s", provider, status, bytes.TrimRight(buf.Bytes(), "\n")), nil
}
