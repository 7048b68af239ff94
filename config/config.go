package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Session, regulation, and identity-provider configuration
//   - policy.go: Access-rule file and reload configuration
//   - database.go: Database and Redis configuration
//   - http.go: HTTP server configuration
type AppConfig struct {
	// IsDev controls development mode behavior (dev auth provider,
	// relaxed cookie security). Set DEV=true or ENVIRONMENT=development.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication configuration
	Auth AuthConfig

	// Access policy configuration
	Policy PolicyConfig

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment
// variables.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.Policy.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// Validate rejects configurations that would be actively unsafe to run,
// beyond what struct tags can express.
func (c *AppConfig) Validate() error {
	return c.Auth.Validate()
}

// detectDevMode checks both DEV and ENVIRONMENT variables. ENVIRONMENT
// is checked as a fallback so deploy tooling that only sets one of the
// two still works.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		environment := strings.ToLower(os.Getenv("ENVIRONMENT"))
		c.IsDev = environment == "development" || environment == "dev"
	}
}
