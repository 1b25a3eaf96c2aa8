package urlutil

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// JoinPath safely joins URL paths, handling trailing and leading slashes correctly
func JoinPath(base string, paths ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	allPaths := append([]string{u.Path}, paths...)
	u.Path = path.Join(allPaths...)

	if len(paths) > 0 && strings.HasSuffix(paths[len(paths)-1], "/") {
		u.Path += "/"
	}

	return u.String(), nil
}

// Origin reduces an absolute http(s) URL to scheme://host[:port]
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", rawURL)
	}
	return strings.ToLower(u.Scheme) + "://" + u.Host, nil
}

// RequestOrigin derives the origin the browser used to reach r. A reverse
// proxy's X-Forwarded-Proto wins over the local TLS state.
func RequestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		// "https, http" when several proxies appended
		first, _, _ := strings.Cut(proto, ",")
		first = strings.ToLower(strings.TrimSpace(first))
		if first == "http" || first == "https" {
			scheme = first
		}
	}
	return scheme + "://" + r.Host
}
