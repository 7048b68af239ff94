package oidc

// Package oidc provides the federated authentication adapter for the
// gateway. Each Provider wraps one upstream OIDC issuer; claim mapping is
// configurable per provider via JMESPath expressions so corporate IdPs
// with non-standard claim names slot in without code changes.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"

	"github.com/target/extranet-gate/internal/ports"
)

// ClaimMappings holds JMESPath expressions evaluated against the merged
// claim set. Empty fields fall back to the standard OIDC claim names.
type ClaimMappings struct {
	Username    string
	DisplayName string
	Email       string
	Groups      string
}

func (m ClaimMappings) withDefaults() ClaimMappings {
	if m.Username == "" {
		m.Username = "preferred_username"
	}
	if m.DisplayName == "" {
		m.DisplayName = "name"
	}
	if m.Email == "" {
		m.Email = "email"
	}
	if m.Groups == "" {
		m.Groups = "groups"
	}
	return m
}

// ProviderConfig holds configuration for one upstream issuer.
type ProviderConfig struct {
	ID           string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	Claims       ClaimMappings
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// Provider implements ports.AuthProvider using OIDC/OAuth2.
type Provider struct {
	id         string
	config     *oauth2.Config
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	claims compiledClaims
}

var _ ports.AuthProvider = (*Provider)(nil)

type compiledClaims struct {
	username    jmespath.JMESPath
	displayName jmespath.JMESPath
	email       jmespath.JMESPath
	groups      jmespath.JMESPath
}

// NewProvider fetches the issuer's discovery document and returns a
// ready provider. The discovery URL may be the issuer itself or its
// .well-known configuration URL.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if config.ID == "" {
		return nil, errors.New("provider ID is required")
	}
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if config.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	claims, err := compileClaims(config.Claims.withDefaults())
	if err != nil {
		return nil, err
	}

	p := &Provider{
		id:         config.ID,
		httpClient: httpClient,
		claims:     claims,
	}

	// Single discovery fetch via go-oidc.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	issuer = strings.TrimSuffix(issuer, ".well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	p.oidcProvider = op
	p.verifier = op.Verifier(&gooidc.Config{ClientID: config.ClientID})

	scope := config.Scope
	if scope == "" {
		scope = "openid profile email"
	}
	p.config = &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes:       strings.Fields(scope),
		Endpoint:     op.Endpoint(),
	}

	return p, nil
}

func compileClaims(m ClaimMappings) (compiledClaims, error) {
	var (
		out compiledClaims
		err error
	)
	if out.username, err = jmespath.Compile(m.Username); err != nil {
		return out, fmt.Errorf("compile username claim path: %w", err)
	}
	if out.displayName, err = jmespath.Compile(m.DisplayName); err != nil {
		return out, fmt.Errorf("compile display name claim path: %w", err)
	}
	if out.email, err = jmespath.Compile(m.Email); err != nil {
		return out, fmt.Errorf("compile email claim path: %w", err)
	}
	if out.groups, err = jmespath.Compile(m.Groups); err != nil {
		return out, fmt.Errorf("compile groups claim path: %w", err)
	}
	return out, nil
}

// ID returns the configured provider identifier.
func (p *Provider) ID() string { return p.id }

// Begin returns the authorization URL carrying the caller's state and
// nonce. State persistence is the caller's concern.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, error) {
	if in.State == "" {
		return "", errors.New("state is required")
	}
	if in.Nonce == "" {
		return "", errors.New("nonce is required")
	}

	authURL := p.config.AuthCodeURL(in.State,
		oauth2.SetAuthURLParam("nonce", in.Nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
	)
	return authURL, nil
}

// Exchange redeems the authorization code, verifies the id token
// signature and nonce, and maps the claims to a ProviderIdentity.
// Missing profile fields are filled from the UserInfo endpoint.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (ports.ProviderIdentity, error) {
	if in.Code == "" {
		return ports.ProviderIdentity{}, errors.New("authorization code is required")
	}
	if in.Nonce == "" {
		return ports.ProviderIdentity{}, errors.New("nonce is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return ports.ProviderIdentity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	rawID, err := idTokenFromToken(token)
	if err != nil {
		return ports.ProviderIdentity{}, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return ports.ProviderIdentity{}, fmt.Errorf("verify id_token: %w", err)
	}

	var claims map[string]any
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return ports.ProviderIdentity{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	if nonce, _ := claims["nonce"].(string); nonce != in.Nonce {
		return ports.ProviderIdentity{}, errors.New("invalid nonce")
	}

	identity := p.mapClaims(claims)
	identity.Subject = idTok.Subject

	if identity.Username == "" || identity.Email == "" {
		if fillErr := p.fillFromUserInfo(ctx, token.AccessToken, &identity); fillErr != nil {
			return ports.ProviderIdentity{}, fmt.Errorf("get user info: %w", fillErr)
		}
	}
	if identity.Username == "" {
		identity.Username = identity.Subject
	}

	return identity, nil
}

func (p *Provider) mapClaims(claims map[string]any) ports.ProviderIdentity {
	return ports.ProviderIdentity{
		Username:    evalString(p.claims.username, claims),
		DisplayName: evalString(p.claims.displayName, claims),
		Email:       evalString(p.claims.email, claims),
		Groups:      evalStrings(p.claims.groups, claims),
	}
}

func (p *Provider) fillFromUserInfo(ctx context.Context, accessToken string, identity *ports.ProviderIdentity) error {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return fmt.Errorf("fetch user info: %w", err)
	}

	var claims map[string]any
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return fmt.Errorf("decode user info: %w", claimsErr)
	}

	filled := p.mapClaims(claims)
	if identity.Username == "" {
		identity.Username = filled.Username
	}
	if identity.DisplayName == "" {
		identity.DisplayName = filled.DisplayName
	}
	if identity.Email == "" {
		identity.Email = filled.Email
	}
	if len(identity.Groups) == 0 {
		identity.Groups = filled.Groups
	}
	return nil
}

func evalString(expr jmespath.JMESPath, claims map[string]any) string {
	result, err := expr.Search(claims)
	if err != nil {
		return ""
	}
	s, _ := result.(string)
	return s
}

func evalStrings(expr jmespath.JMESPath, claims map[string]any) []string {
	result, err := expr.Search(claims)
	if err != nil || result == nil {
		return nil
	}
	switch v := result.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

func idTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
