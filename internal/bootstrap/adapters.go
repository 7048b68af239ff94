package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/extranet-gate/config"
	"github.com/target/extranet-gate/internal/adapters/devauth"
	"github.com/target/extranet-gate/internal/adapters/oidc"
	redisadapter "github.com/target/extranet-gate/internal/adapters/redis"
	"github.com/target/extranet-gate/internal/ports"
)

// AdapterContainer groups the port implementations built from config.
type AdapterContainer struct {
	Sessions  *redisadapter.SessionStore
	States    *redisadapter.StateStore
	Regulator *redisadapter.Regulator
	Providers ports.ProviderRegistry
}

// AdapterDeps groups dependencies for adapter construction.
type AdapterDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// BuildAdapters wires the Redis-backed stores and the federated provider
// registry. Provider discovery talks to the issuer, so this needs the
// network up.
func BuildAdapters(deps AdapterDeps) (AdapterContainer, error) {
	cfg := deps.Config

	providers, err := buildProviders(cfg, deps.Logger)
	if err != nil {
		return AdapterContainer{}, err
	}

	registry, err := oidc.NewRegistry(providers...)
	if err != nil {
		return AdapterContainer{}, fmt.Errorf("build provider registry: %w", err)
	}

	return AdapterContainer{
		Sessions: redisadapter.NewSessionStore(deps.RedisClient),
		States:   redisadapter.NewStateStore(deps.RedisClient),
		Regulator: redisadapter.NewRegulator(deps.RedisClient, redisadapter.RegulatorConfig{
			MaxAttempts: cfg.Auth.Regulation.MaxAttempts,
			Window:      cfg.Auth.Regulation.Window,
			Cooldown:    cfg.Auth.Regulation.Cooldown,
		}),
		Providers: registry,
	}, nil
}

func buildProviders(cfg *config.AppConfig, logger *slog.Logger) ([]ports.AuthProvider, error) {
	var providers []ports.AuthProvider

	if cfg.Auth.OIDC.Enabled {
		provider, err := oidc.NewProvider(oidcProviderConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("build oidc provider %q: %w", cfg.Auth.OIDC.ID, err)
		}
		providers = append(providers, provider)
		if logger != nil {
			logger.Info("federated provider registered",
				"provider", cfg.Auth.OIDC.ID,
				"issuer", cfg.Auth.OIDC.DiscoveryURL,
			)
		}
	}

	// The dev provider only ever exists in dev mode; it asserts a fixed
	// identity with no upstream issuer.
	if cfg.IsDev {
		provider, err := devauth.NewProvider(devauth.Config{
			ID:          "dev",
			Username:    cfg.Auth.DevAuth.Username,
			DisplayName: cfg.Auth.DevAuth.DisplayName,
			Email:       cfg.Auth.DevAuth.Email,
			Groups:      cfg.Auth.DevAuth.Groups,
		})
		if err != nil {
			return nil, fmt.Errorf("build dev auth provider: %w", err)
		}
		providers = append(providers, provider)
		if logger != nil {
			logger.Warn("dev auth provider enabled; do not run this in production")
		}
	}

	return providers, nil
}

func oidcProviderConfig(cfg *config.AppConfig) oidc.ProviderConfig {
	oc := cfg.Auth.OIDC
	redirectURL := oc.RedirectURL
	if redirectURL == "" {
		redirectURL = cfg.HTTP.BaseURL + "/auth/oidc/" + oc.ID + "/callback"
	}
	return oidc.ProviderConfig{
		ID:           oc.ID,
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
		RedirectURL:  redirectURL,
		Scope:        oc.Scope,
		DiscoveryURL: oc.DiscoveryURL,
		Claims: oidc.ClaimMappings{
			Username:    oc.UsernameClaim,
			DisplayName: oc.DisplayNameClaim,
			Email:       oc.EmailClaim,
			Groups:      oc.GroupsClaim,
		},
	}
}
