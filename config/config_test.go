package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseConfig(t *testing.T) AppConfig {
	t.Helper()
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()
	return cfg
}

func TestDefaults(t *testing.T) {
	t.Setenv("AUTH_PROTECTED_DOMAIN", "example.com")

	cfg := parseConfig(t)

	assert.False(t, cfg.IsDev)
	assert.Equal(t, "extranet_session", cfg.Auth.CookieName)
	assert.Equal(t, "example.com", cfg.Auth.CookieDomain)
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, 30*time.Minute, cfg.Auth.InactivityWindow)
	assert.Equal(t, 5, cfg.Auth.Regulation.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Auth.Regulation.Cooldown)
	assert.Equal(t, "rules.json", cfg.Policy.RulesPath)
	assert.Equal(t, 30*time.Second, cfg.Policy.ReloadInterval)
	assert.True(t, cfg.Policy.WatchEnabled)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "http://localhost:8080", cfg.HTTP.BaseURL)
	assert.False(t, cfg.Auth.OIDC.Enabled)
	assert.False(t, cfg.Observability.Metrics.IsEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestProtectedDomainRequired(t *testing.T) {
	var cfg AppConfig
	err := env.Parse(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_PROTECTED_DOMAIN")
}

func TestCookieDomainDefaultsToProtectedDomain(t *testing.T) {
	t.Setenv("AUTH_PROTECTED_DOMAIN", "Corp.Example.COM.")

	cfg := parseConfig(t)

	assert.Equal(t, "corp.example.com", cfg.Auth.ProtectedDomain)
	assert.Equal(t, "corp.example.com", cfg.Auth.CookieDomain)
}

func TestCookieDomainOverride(t *testing.T) {
	t.Setenv("AUTH_PROTECTED_DOMAIN", "example.com")
	t.Setenv("AUTH_COOKIE_DOMAIN", "sso.example.com")

	cfg := parseConfig(t)

	assert.Equal(t, "sso.example.com", cfg.Auth.CookieDomain)
}

func TestValidateRejectsPublicSuffixDomains(t *testing.T) {
	cases := []string{"com", "co.uk", "github.io"}
	for _, domain := range cases {
		t.Run(domain, func(t *testing.T) {
			cfg := AppConfig{Auth: AuthConfig{ProtectedDomain: domain}}
			cfg.Sanitize()
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSanitizeClamps(t *testing.T) {
	t.Setenv("AUTH_PROTECTED_DOMAIN", "example.com")
	t.Setenv("AUTH_SESSION_LIFETIME", "-1h")
	t.Setenv("AUTH_REMEMBER_ME_LIFETIME", "1h")
	t.Setenv("AUTH_REGULATION_MAX_ATTEMPTS", "0")
	t.Setenv("AUTH_REGULATION_WINDOW", "10m")
	t.Setenv("AUTH_REGULATION_COOLDOWN", "-1m")
	t.Setenv("POLICY_RELOAD_INTERVAL", "5ms")

	cfg := parseConfig(t)

	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionLifetime)
	// Remember-me never undercuts the standard lifetime.
	assert.Equal(t, cfg.Auth.SessionLifetime, cfg.Auth.RememberMeLifetime)
	assert.Equal(t, 1, cfg.Auth.Regulation.MaxAttempts)
	// A nonsense cooldown falls back to the window.
	assert.Equal(t, 10*time.Minute, cfg.Auth.Regulation.Cooldown)
	assert.Equal(t, time.Second, cfg.Policy.ReloadInterval)
}

func TestDevModeFromEnvironment(t *testing.T) {
	t.Setenv("AUTH_PROTECTED_DOMAIN", "example.com")
	t.Setenv("ENVIRONMENT", "development")

	cfg := parseConfig(t)

	assert.True(t, cfg.IsDev)
}

func TestBaseURLTrailingSlashTrimmed(t *testing.T) {
	t.Setenv("AUTH_PROTECTED_DOMAIN", "example.com")
	t.Setenv("APP_BASE_URL", "https://auth.example.com/")

	cfg := parseConfig(t)

	assert.Equal(t, "https://auth.example.com", cfg.HTTP.BaseURL)
}

func TestOIDCProviderConfig(t *testing.T) {
	t.Setenv("AUTH_PROTECTED_DOMAIN", "example.com")
	t.Setenv("OIDC_ENABLED", "true")
	t.Setenv("OIDC_ID", "corp")
	t.Setenv("OIDC_CLIENT_ID", "gateway")
	t.Setenv("OIDC_DISCOVERY_URL", "https://idp.example.com")

	cfg := parseConfig(t)

	require.True(t, cfg.Auth.OIDC.Enabled)
	assert.Equal(t, "corp", cfg.Auth.OIDC.ID)
	assert.Equal(t, "openid profile email groups", cfg.Auth.OIDC.Scope)
	assert.Equal(t, "preferred_username", cfg.Auth.OIDC.UsernameClaim)
}

func TestMetricsDisabledWithoutAddress(t *testing.T) {
	t.Setenv("AUTH_PROTECTED_DOMAIN", "example.com")
	t.Setenv("OBSERVABILITY_METRICS_ENABLED", "true")
	t.Setenv("OBSERVABILITY_METRICS_STATSD_ADDRESS", "   ")

	cfg := parseConfig(t)

	assert.False(t, cfg.Observability.Metrics.IsEnabled())
}
