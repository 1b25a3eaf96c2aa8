package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yitumuglobal/site-api/internal/contact"
	"github.com/yitumuglobal/site-api/internal/emailutil"
	jsonwriter "github.com/yitumuglobal/site-api/internal/json"
	"github.com/yitumuglobal/site-api/internal/log"
)

// MaxContactBody caps the contact form request body
const MaxContactBody = 1 << 20

// UnknownClientIP stands in when no source address can be determined
const UnknownClientIP = "0.0.0.0"

// RateLimiter decides whether a client may submit again
type RateLimiter interface {
	Allow(ctx context.Context, client string) (bool, error)
}

// SubmissionNotifier forwards accepted submissions
type SubmissionNotifier interface {
	Notify(s contact.Submission) bool
}

// ContactHandlers serves the contact form endpoint
type ContactHandlers struct {
	limiter        RateLimiter
	notifier       SubmissionNotifier
	clientIPHeader string
	now            func() time.Time
}

// NewContactHandlers creates the contact handler. A nil limiter disables rate
// limiting and a nil notifier disables forwarding.
func NewContactHandlers(limiter RateLimiter, notifier SubmissionNotifier, clientIPHeader string) *ContactHandlers {
	return &ContactHandlers{
		limiter:        limiter,
		notifier:       notifier,
		clientIPHeader: clientIPHeader,
		now:            time.Now,
	}
}

// SubmitHandler accepts a contact form post: POST /api/contact
func (h *ContactHandlers) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !contact.IsFormContentType(r.Header.Get("Content-Type")) {
		jsonwriter.WriteBadRequest(w, "invalid content-type")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxContactBody)
	if err := parseForm(r); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonwriter.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		log.LogDebugWithFields("contact", "Unparseable form body", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteBadRequest(w, "invalid form body")
		return
	}

	form := contact.FormFromValues(r.PostForm)
	ip := h.clientIP(r)

	if form.IsSpam() {
		log.LogInfoWithFields("contact", "Honeypot triggered, submission discarded", nil)
		jsonwriter.WriteOK(w)
		return
	}

	if err := form.Validate(); err != nil {
		var verr *contact.ValidationError
		if errors.As(err, &verr) {
			log.LogDebugWithFields("contact", "Submission rejected", map[string]any{
				"field": verr.Field,
			})
		}
		jsonwriter.WriteBadRequest(w, err.Error())
		return
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(r.Context(), ip)
		switch {
		case err != nil:
			// Fail open: a flaky counter store must not take the form down
			log.LogWarnWithFields("contact", "Rate limit check failed, allowing submission", map[string]any{
				"error": err.Error(),
			})
		case !allowed:
			log.LogInfoWithFields("contact", "Submission rate limited", nil)
			jsonwriter.WriteTooManyRequests(w, "too many submissions, please try again later")
			return
		}
	}

	submission := contact.NewSubmission(form, ip, r.Header.Get("User-Agent"), h.now())
	log.LogInfoWithFields("contact", "Submission accepted", map[string]any{
		"id":          submission.ID,
		"emailDomain": emailutil.Domain(submission.Email),
	})

	if h.notifier != nil {
		h.notifier.Notify(submission)
	}

	jsonwriter.WriteOK(w)
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/") {
		return r.ParseMultipartForm(MaxContactBody)
	}
	return r.ParseForm()
}

// clientIP prefers the configured proxy header, then the peer address
func (h *ContactHandlers) clientIP(r *http.Request) string {
	if h.clientIPHeader != "" {
		if v := r.Header.Get(h.clientIPHeader); v != "" {
			// X-Forwarded-For style lists put the client first
			first, _, _ := strings.Cut(v, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return UnknownClientIP
}
