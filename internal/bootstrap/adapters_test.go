package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/extranet-gate/config"
)

func TestBuildProviders_DevModeOnly(t *testing.T) {
	cfg := &config.AppConfig{IsDev: true}
	cfg.Auth.DevAuth = config.DevAuthConfig{
		Username:    "dev-user",
		DisplayName: "Dev User",
		Email:       "dev@example.com",
		Groups:      []string{"admins"},
	}

	providers, err := buildProviders(cfg, nil)
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "dev", providers[0].ID())
}

func TestBuildProviders_NoneInProduction(t *testing.T) {
	cfg := &config.AppConfig{}

	providers, err := buildProviders(cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, providers)
}

func TestOIDCProviderConfig_DerivesRedirectURL(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.HTTP.BaseURL = "https://auth.example.com"
	cfg.Auth.OIDC = config.OIDCProviderConfig{
		ID:           "corp",
		ClientID:     "gateway",
		DiscoveryURL: "https://idp.example.com",
	}

	pc := oidcProviderConfig(cfg)
	assert.Equal(t, "https://auth.example.com/auth/oidc/corp/callback", pc.RedirectURL)
}

func TestOIDCProviderConfig_ExplicitRedirectURLWins(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.HTTP.BaseURL = "https://auth.example.com"
	cfg.Auth.OIDC = config.OIDCProviderConfig{
		ID:          "corp",
		RedirectURL: "https://other.example.com/cb",
	}

	pc := oidcProviderConfig(cfg)
	assert.Equal(t, "https://other.example.com/cb", pc.RedirectURL)
}
