package cookie

import (
	"net/http"
	"time"

	"github.com/yitumuglobal/site-api/internal/log"
)

// StateCookie holds the OAuth state between /api/auth and /api/callback
const StateCookie = "decap_oauth_state"

// StateMaxAge bounds how long a login popup may take
const StateMaxAge = 10 * time.Minute

// SetState sets the state cookie. Lax lets the provider's top-level redirect
// back to the callback carry it.
func SetState(w http.ResponseWriter, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogTraceWithFields("cookie", "State cookie set", map[string]any{
		"maxAge": maxAge.String(),
	})
}

// ClearState expires the state cookie. A negative MaxAge is written as
// "Max-Age=0" by net/http.
func ClearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	log.LogTraceWithFields("cookie", "State cookie cleared", nil)
}

// GetState retrieves the state cookie value
func GetState(r *http.Request) (string, error) {
	c, err := r.Cookie(StateCookie)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
