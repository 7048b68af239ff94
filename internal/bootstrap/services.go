package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/target/extranet-gate/config"
	"github.com/target/extranet-gate/internal/data"
	"github.com/target/extranet-gate/internal/observability/statsd"
	"github.com/target/extranet-gate/internal/ports"
	"github.com/target/extranet-gate/internal/security"
	"github.com/target/extranet-gate/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth    *service.AuthService
	Policy  *service.PolicyService
	Metrics *statsd.Client
	// Hasher is exposed for dev seeding.
	Hasher ports.PasswordHasher
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config   *config.AppConfig
	DB       *sql.DB
	Adapters AdapterContainer
	Logger   *slog.Logger
}

// BuildServices constructs the auth and policy services from config and
// the already-connected adapters.
func BuildServices(deps ServiceDeps) (ServiceContainer, error) {
	cfg := deps.Config

	hasher, err := security.NewHasher(security.DefaultHasherParams())
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build password hasher: %w", err)
	}
	totp, err := security.NewTOTP(security.DefaultTOTPConfig("Extranet Gate"))
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build totp verifier: %w", err)
	}

	auth := service.NewAuthService(service.AuthServiceOptions{
		Sessions:     deps.Adapters.Sessions,
		States:       deps.Adapters.States,
		Identities:   data.NewIdentityRepo(deps.DB),
		Providers:    deps.Adapters.Providers,
		Regulator:    deps.Adapters.Regulator,
		Hasher:       hasher,
		SecondFactor: totp,
		Config: service.AuthConfig{
			SessionLifetime:    cfg.Auth.SessionLifetime,
			RememberMeLifetime: cfg.Auth.RememberMeLifetime,
			InactivityWindow:   cfg.Auth.InactivityWindow,
			StateTTL:           cfg.Auth.StateTTL,
		},
	})

	policy, err := service.NewPolicyService(service.PolicyServiceOptions{
		RulesPath: cfg.Policy.RulesPath,
		Logger:    deps.Logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("load access rules: %w", err)
	}

	metrics, err := buildMetrics(cfg.Observability.Metrics, deps.Logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	return ServiceContainer{Auth: auth, Policy: policy, Metrics: metrics, Hasher: hasher}, nil
}

// buildMetrics returns a nil client when metrics are disabled; the nil
// client is a no-op sink.
func buildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (*statsd.Client, error) {
	if !cfg.IsEnabled() {
		return nil, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.StatsdPrefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build statsd client: %w", err)
	}
	if logger != nil {
		logger.Info("metrics enabled", "statsd", cfg.StatsdAddress)
	}
	return client, nil
}
