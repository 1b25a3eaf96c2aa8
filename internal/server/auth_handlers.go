package server

import (
	"bytes"
	"context"
	"net/http"

	"github.com/yitumuglobal/site-api/internal/config"
	"github.com/yitumuglobal/site-api/internal/cookie"
	"github.com/yitumuglobal/site-api/internal/crypto"
	"github.com/yitumuglobal/site-api/internal/idp"
	jsonwriter "github.com/yitumuglobal/site-api/internal/json"
	"github.com/yitumuglobal/site-api/internal/log"
	"github.com/yitumuglobal/site-api/internal/urlutil"
)

// CallbackPath is where the provider sends the browser back to
const CallbackPath = "/api/callback"

const (
	howToFixClientID    = "Set GITHUB_CLIENT_ID (oauth.clientId) to the OAuth app's client ID and restart."
	howToFixCredential  = "Set GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET (oauth.clientId, oauth.clientSecret) and restart."
	detailsInvalidState = "State mismatch. Please retry login; do not block cookies for this site."
)

// AuthHandlers relays the CMS login popup through the provider's OAuth flow
type AuthHandlers struct {
	provider    idp.Provider
	oauthConfig config.OAuthConfig
	baseURL     string
}

// NewAuthHandlers creates the authorize and callback handlers. An empty
// baseURL derives the site origin from each request.
func NewAuthHandlers(provider idp.Provider, oauthConfig config.OAuthConfig, baseURL string) *AuthHandlers {
	return &AuthHandlers{
		provider:    provider,
		oauthConfig: oauthConfig,
		baseURL:     baseURL,
	}
}

// siteOrigin is both the redirect URI's origin and the only origin the
// popup will talk to.
func (h *AuthHandlers) siteOrigin(r *http.Request) string {
	if h.baseURL != "" {
		if origin, err := urlutil.Origin(h.baseURL); err == nil {
			return origin
		}
	}
	return urlutil.RequestOrigin(r)
}

func (h *AuthHandlers) redirectURI(r *http.Request) string {
	uri, err := urlutil.JoinPath(h.siteOrigin(r), CallbackPath)
	if err != nil {
		return h.siteOrigin(r) + CallbackPath
	}
	return uri
}

// AuthorizeHandler starts a login: GET /api/auth?scope=<optional>
func (h *AuthHandlers) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	if h.oauthConfig.ClientID == "" {
		log.LogErrorWithFields("auth", "Authorize requested without a client ID configured", nil)
		jsonwriter.WriteConfigError(w, "Missing env var GITHUB_CLIENT_ID", howToFixClientID)
		return
	}

	state, err := crypto.GenerateStateToken()
	if err != nil {
		log.LogErrorWithFields("auth", "Failed to generate state", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Failed to start login")
		return
	}

	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = h.oauthConfig.Scope
	}
	if scope == "" {
		scope = config.DefaultScope
	}

	authURL := h.provider.AuthURL(state, h.redirectURI(r), scope)

	cookie.SetState(w, state, cookie.StateMaxAge)
	w.Header().Set("Cache-Control", "no-store")

	log.LogInfoWithFields("auth", "Redirecting to provider", map[string]any{
		"provider": h.provider.Type(),
		"scope":    scope,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// CallbackHandler finishes a login: GET /api/callback?code=&state=
//
// Every outcome is delivered to the opener through the handshake page, and
// every outcome clears the state cookie so a state value is never reused.
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	cookie.ClearState(w)

	if h.oauthConfig.ClientID == "" || h.oauthConfig.ClientSecret == "" {
		log.LogErrorWithFields("auth", "Callback reached without OAuth credentials configured", map[string]any{
			"clientIdSet":     h.oauthConfig.ClientID != "",
			"clientSecretSet": h.oauthConfig.ClientSecret != "",
		})
		h.renderError(w, r, http.StatusInternalServerError, ErrorPayload{
			Error:   "Missing env vars",
			Details: howToFixCredential,
		})
		return
	}

	query := r.URL.Query()
	code := query.Get("code")
	if code == "" {
		payload := ErrorPayload{Error: "Missing OAuth code"}
		// The provider reports a denied consent with error parameters instead of a code
		if providerErr := query.Get("error"); providerErr != "" {
			payload.Details = providerErr
			if desc := query.Get("error_description"); desc != "" {
				payload.Details += ": " + desc
			}
		}
		log.LogWarnWithFields("auth", "Callback without code", map[string]any{
			"providerError": query.Get("error"),
		})
		h.renderError(w, r, http.StatusBadRequest, payload)
		return
	}

	state := query.Get("state")
	cookieState, err := cookie.GetState(r)
	if state == "" || err != nil || cookieState == "" || state != cookieState {
		log.LogWarnWithFields("auth", "Callback state mismatch", map[string]any{
			"stateSet":  state != "",
			"cookieSet": err == nil && cookieState != "",
		})
		h.renderError(w, r, http.StatusBadRequest, ErrorPayload{
			Error:   "Invalid state",
			Details: detailsInvalidState,
		})
		return
	}

	timeout := h.oauthConfig.ExchangeTimeout
	if timeout <= 0 {
		timeout = config.DefaultExchangeTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	token, err := h.provider.ExchangeCode(ctx, code, h.redirectURI(r))
	if err != nil {
		log.LogErrorWithFields("auth", "Token exchange failed", map[string]any{
			"provider": h.provider.Type(),
			"error":    err.Error(),
		})
		h.renderError(w, r, http.StatusInternalServerError, ErrorPayload{
			Error:   "OAuth exchange failed",
			Details: err.Error(),
		})
		return
	}

	log.LogInfoWithFields("auth", "Login completed", map[string]any{
		"provider": h.provider.Type(),
	})
	h.render(w, r, http.StatusOK, HandshakeSuccess, SuccessPayload{
		Token:    token,
		Provider: h.provider.Type(),
	}, "Authorized. This window will close.", "")
}

func (h *AuthHandlers) renderError(w http.ResponseWriter, r *http.Request, statusCode int, payload ErrorPayload) {
	h.render(w, r, statusCode, HandshakeError, payload, payload.Error, payload.Details)
}

// render writes the handshake page. The page is built in memory first so a
// template failure can still produce a clean 500.
func (h *AuthHandlers) render(w http.ResponseWriter, r *http.Request, statusCode int, status string, payload any, text, details string) {
	provider := h.provider.Type()

	message, err := AuthorizationMessage(provider, status, payload)
	if err != nil {
		h.renderFailure(w, err)
		return
	}

	data, err := newAuthorizationPageData(h.siteOrigin(r), AnnounceMessage(provider), message, text, details)
	if err != nil {
		h.renderFailure(w, err)
		return
	}

	var buf bytes.Buffer
	if err := authorizationPageTemplate.Execute(&buf, data); err != nil {
		h.renderFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

func (h *AuthHandlers) renderFailure(w http.ResponseWriter, err error) {
	log.LogErrorWithFields("auth", "Failed to render authorization page", map[string]any{
		"error": err.Error(),
	})
	jsonwriter.WriteInternalServerError(w, "Failed to render authorization page")
}
