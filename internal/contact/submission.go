// Package contact validates contact-form submissions and forwards them to a
// webhook.
package contact

import (
	"mime"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/yitumuglobal/site-api/internal/emailutil"
)

// Source tags every forwarded submission
const Source = "yitumuglobal-contact"

// HoneypotField is hidden from people; anything typing into it is a bot
const HoneypotField = "website"

const (
	MinNameLen    = 2
	MaxNameLen    = 50
	MinMessageLen = 10
	MaxMessageLen = 2000
)

// timeLayout matches JavaScript's Date.toISOString
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Form holds the trimmed form fields as posted
type Form struct {
	Name     string
	Email    string
	WhatsApp string
	Country  string
	Quantity string
	Product  string
	Message  string
	Website  string
}

// ValidationError names the first field that failed validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsFormContentType reports whether contentType is urlencoded or multipart form data
func IsFormContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

// FormFromValues reads and trims the known fields. Missing fields are "".
func FormFromValues(v url.Values) Form {
	get := func(key string) string {
		return strings.TrimSpace(v.Get(key))
	}
	return Form{
		Name:     get("name"),
		Email:    get("email"),
		WhatsApp: get("whatsapp"),
		Country:  get("country"),
		Quantity: get("quantity"),
		Product:  get("product"),
		Message:  get("message"),
		Website:  get(HoneypotField),
	}
}

// IsSpam reports whether the honeypot was filled in
func (f Form) IsSpam() bool {
	return f.Website != ""
}

// Validate checks lengths in code points and the email shape
func (f Form) Validate() error {
	if n := utf8.RuneCountInString(f.Name); n < MinNameLen || n > MaxNameLen {
		return &ValidationError{Field: "name", Message: "invalid name length"}
	}
	if !emailutil.IsValid(f.Email) {
		return &ValidationError{Field: "email", Message: "invalid email address"}
	}
	if n := utf8.RuneCountInString(f.Message); n < MinMessageLen || n > MaxMessageLen {
		return &ValidationError{Field: "message", Message: "invalid message length"}
	}
	return nil
}

// Submission is the webhook payload
type Submission struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Time     string `json:"time"`
	IP       string `json:"ip"`
	UA       string `json:"ua"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	WhatsApp string `json:"whatsapp"`
	Country  string `json:"country"`
	Product  string `json:"product"`
	Quantity string `json:"quantity"`
	Message  string `json:"message"`
}

// NewSubmission stamps a validated form with request metadata
func NewSubmission(f Form, ip, userAgent string, now time.Time) Submission {
	return Submission{
		ID:       uuid.NewString(),
		Source:   Source,
		Time:     now.UTC().Format(timeLayout),
		IP:       ip,
		UA:       userAgent,
		Name:     f.Name,
		Email:    f.Email,
		WhatsApp: f.WhatsApp,
		Country:  f.Country,
		Product:  f.Product,
		Quantity: f.Quantity,
		Message:  f.Message,
	}
}
