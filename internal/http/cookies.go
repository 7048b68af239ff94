package httpx

import (
	"net/http"
	"time"

	domainauth "github.com/target/extranet-gate/internal/domain/auth"
)

// DefaultSessionCookieName is used when CookieConfig.Name is empty.
const DefaultSessionCookieName = "extranet_session"

// CookieConfig controls the session cookie the gateway issues. Domain
// should be the parent domain shared by every protected application so
// the proxied hosts present the cookie on forward-auth checks.
type CookieConfig struct {
	Name   string
	Domain string
	// Insecure drops the Secure attribute so the cookie works over plain
	// HTTP. Local development only.
	Insecure bool
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultSessionCookieName
	}
	return c.Name
}

// SessionID extracts the session id from the request cookie. The second
// return is false when no cookie is present.
func (c CookieConfig) SessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.name())
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// SetSession writes the session cookie. Max-Age tracks the session's
// remaining absolute lifetime; the idle window is enforced server-side.
func (c CookieConfig) SetSession(w http.ResponseWriter, s domainauth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    s.ID,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   !c.Insecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

// Clear expires the session cookie, mirroring the attributes used when
// setting it so browsers actually drop it.
func (c CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   !c.Insecure,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}
