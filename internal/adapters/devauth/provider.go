package devauth

// Package devauth provides a config-driven AuthProvider for local
// development. It short-circuits the federated flow by redirecting back
// to the gateway's own callback and asserting a configured identity.

import (
	"context"
	"errors"
	"net/url"

	"github.com/target/extranet-gate/internal/ports"
)

// Config controls the dev auth provider behavior.
// All fields are required except Groups, which may be empty.
type Config struct {
	ID          string
	Username    string
	DisplayName string
	Email       string
	Groups      []string
}

// Provider implements ports.AuthProvider for local development.
// Exchange ignores the code and returns the configured identity.
type Provider struct {
	id       string
	identity ports.ProviderIdentity
}

var _ ports.AuthProvider = (*Provider)(nil)

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.ID == "" {
		return nil, errors.New("dev auth: ID is required")
	}
	if cfg.Username == "" {
		return nil, errors.New("dev auth: Username is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	return &Provider{
		id: cfg.ID,
		identity: ports.ProviderIdentity{
			Subject:     "dev:" + cfg.Username,
			Username:    cfg.Username,
			DisplayName: cfg.DisplayName,
			Email:       cfg.Email,
			Groups:      append([]string(nil), cfg.Groups...),
		},
	}, nil
}

// ID returns the configured provider identifier.
func (p *Provider) ID() string { return p.id }

// Begin returns a local callback URL carrying the caller's state, so the
// browser loops straight back to the gateway's callback handler.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, error) {
	if in.State == "" {
		return "", errors.New("state is required")
	}
	q := url.Values{}
	q.Set("code", "dev")
	q.Set("state", in.State)
	return "/auth/oidc/" + url.PathEscape(p.id) + "/callback?" + q.Encode(), nil
}

// Exchange ignores the provided code and returns the dev identity.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (ports.ProviderIdentity, error) {
	return p.identity, nil
}
