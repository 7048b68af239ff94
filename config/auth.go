package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// AuthConfig groups session lifecycle, attempt regulation, and identity
// provider configuration.
type AuthConfig struct {
	// ProtectedDomain is the parent domain the gateway protects. Session
	// cookies are scoped to it and redirect targets must stay under it.
	ProtectedDomain string `env:"AUTH_PROTECTED_DOMAIN,required"`

	// CookieName is the session cookie name.
	CookieName string `env:"AUTH_COOKIE_NAME" envDefault:"extranet_session"`

	// CookieDomain overrides the cookie scope. Defaults to ProtectedDomain.
	CookieDomain string `env:"AUTH_COOKIE_DOMAIN"`

	// CookieInsecure drops the cookie's Secure attribute for development
	// over plain HTTP. Production deployments leave this off.
	CookieInsecure bool `env:"AUTH_COOKIE_INSECURE" envDefault:"false"`

	// SessionLifetime is the absolute bound for a standard session.
	SessionLifetime time.Duration `env:"AUTH_SESSION_LIFETIME" envDefault:"12h"`

	// RememberMeLifetime is the absolute bound for remember-me sessions.
	RememberMeLifetime time.Duration `env:"AUTH_REMEMBER_ME_LIFETIME" envDefault:"720h"`

	// InactivityWindow expires sessions idle longer than this. Zero
	// disables idle expiry.
	InactivityWindow time.Duration `env:"AUTH_INACTIVITY_WINDOW" envDefault:"30m"`

	// StateTTL bounds how long a federated login may stay in flight.
	StateTTL time.Duration `env:"AUTH_STATE_TTL" envDefault:"5m"`

	// Regulation configures failed-attempt rate limiting.
	Regulation RegulationConfig `envPrefix:"AUTH_REGULATION_"`

	// OIDC configures the upstream identity provider.
	OIDC OIDCProviderConfig `envPrefix:"OIDC_"`

	// DevAuth configures the development login provider, active only in
	// dev mode.
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}

// RegulationConfig controls the fixed-window failed-attempt counters.
type RegulationConfig struct {
	// MaxAttempts is the number of failures allowed per window.
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"5"`

	// Window is the counting window; counters reset when it elapses.
	Window time.Duration `env:"WINDOW" envDefault:"5m"`

	// Cooldown is how long a subject stays banned after crossing the
	// threshold. Defaults to the window when unset.
	Cooldown time.Duration `env:"COOLDOWN" envDefault:"5m"`
}

// OIDCProviderConfig describes one upstream OIDC issuer.
type OIDCProviderConfig struct {
	// Enabled turns federated login on. Local login is always available.
	Enabled bool `env:"ENABLED" envDefault:"false"`

	// ID is the provider identifier used in /auth/oidc/{id} routes.
	ID string `env:"ID" envDefault:"corp"`

	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`

	// DiscoveryURL is the issuer URL or its .well-known configuration URL.
	DiscoveryURL string `env:"DISCOVERY_URL"`

	// RedirectURL is the callback URL registered with the issuer. When
	// empty it is derived from the HTTP base URL at bootstrap.
	RedirectURL string `env:"REDIRECT_URL"`

	Scope string `env:"SCOPE" envDefault:"openid profile email groups"`

	// Claim mapping expressions (JMESPath over the merged claim set).
	UsernameClaim    string `env:"USERNAME_CLAIM"     envDefault:"preferred_username"`
	DisplayNameClaim string `env:"DISPLAY_NAME_CLAIM" envDefault:"name"`
	EmailClaim       string `env:"EMAIL_CLAIM"        envDefault:"email"`
	GroupsClaim      string `env:"GROUPS_CLAIM"       envDefault:"groups"`
}

// DevAuthConfig controls the development auth provider identity.
type DevAuthConfig struct {
	Username    string   `env:"USERNAME"     envDefault:"dev-user"`
	DisplayName string   `env:"DISPLAY_NAME" envDefault:"Dev User"`
	Email       string   `env:"EMAIL"        envDefault:"dev@example.com"`
	Groups      []string `env:"GROUPS"       envDefault:"admins"          envSeparator:";"`
}

// Sanitize applies guardrails to authentication configuration.
func (a *AuthConfig) Sanitize() {
	a.ProtectedDomain = normalizeDomain(a.ProtectedDomain)
	a.CookieDomain = normalizeDomain(a.CookieDomain)
	if a.CookieDomain == "" {
		a.CookieDomain = a.ProtectedDomain
	}

	if a.SessionLifetime <= 0 {
		a.SessionLifetime = 12 * time.Hour
	}
	if a.RememberMeLifetime < a.SessionLifetime {
		a.RememberMeLifetime = a.SessionLifetime
	}
	if a.InactivityWindow < 0 {
		a.InactivityWindow = 0
	}
	if a.StateTTL <= 0 {
		a.StateTTL = 5 * time.Minute
	}

	if a.Regulation.MaxAttempts < 1 {
		a.Regulation.MaxAttempts = 1
	}
	if a.Regulation.Window <= 0 {
		a.Regulation.Window = 5 * time.Minute
	}
	if a.Regulation.Cooldown <= 0 {
		a.Regulation.Cooldown = a.Regulation.Window
	}
}

// Validate rejects domains that would scope the session cookie to the
// open internet: browsers ignore Set-Cookie on public suffixes, so the
// gateway would silently never authenticate anything.
func (a *AuthConfig) Validate() error {
	for _, domain := range []string{a.ProtectedDomain, a.CookieDomain} {
		if domain == "" {
			continue
		}
		if suffix, _ := publicsuffix.PublicSuffix(domain); suffix == domain {
			return fmt.Errorf("domain %q is a public suffix and cannot scope sessions", domain)
		}
	}
	return nil
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
}
