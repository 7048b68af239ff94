package config

import "time"

// PolicyConfig controls the access-rule file and its hot reload.
type PolicyConfig struct {
	// RulesPath is the JSON rules file the policy engine loads.
	RulesPath string `env:"POLICY_RULES_PATH" envDefault:"rules.json"`

	// ReloadInterval is how often the rules file is polled for changes.
	ReloadInterval time.Duration `env:"POLICY_RELOAD_INTERVAL" envDefault:"30s"`

	// WatchEnabled turns the background reload poller on.
	WatchEnabled bool `env:"POLICY_WATCH_ENABLED" envDefault:"true"`
}

// Sanitize applies guardrails to policy configuration.
func (p *PolicyConfig) Sanitize() {
	if p.ReloadInterval < time.Second {
		p.ReloadInterval = time.Second
	}
}
