package httpx

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	apperrors "github.com/target/extranet-gate/internal/errors"
)

// SafeReturnURL validates a post-login redirect target. Accepted forms:
//
//   - a relative path starting with "/" (stays on the portal host)
//   - an absolute http(s) URL whose hostname is the protected domain or
//     one of its subdomains
//
// Anything else is an open-redirect attempt and returns an error; callers
// fall back to the default landing page and log the rejected target.
func SafeReturnURL(raw, protectedDomain string) (string, error) {
	if raw == "" {
		return "", apperrors.OpenRedirect(raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", apperrors.OpenRedirect(raw)
	}

	// Relative path on the portal itself. Reject scheme-relative ("//x")
	// and host-carrying forms.
	if !u.IsAbs() && u.Host == "" {
		if strings.HasPrefix(u.Path, "/") && !strings.HasPrefix(u.Path, "//") {
			return raw, nil
		}
		return "", apperrors.OpenRedirect(raw)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", apperrors.OpenRedirect(raw)
	}
	if !HostWithinDomain(u.Hostname(), protectedDomain) {
		return "", apperrors.OpenRedirect(raw)
	}
	return raw, nil
}

// HostWithinDomain reports whether host equals the protected domain or is
// a subdomain of it. A protected domain that is itself a public suffix
// (e.g. "com", "co.uk") never matches: it would cover the open internet.
func HostWithinDomain(host, domain string) bool {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if host == "" || domain == "" {
		return false
	}

	if suffix, _ := publicsuffix.PublicSuffix(domain); suffix == domain {
		return false
	}

	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}
