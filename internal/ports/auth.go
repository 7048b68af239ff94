package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration
// in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/target/extranet-gate/internal/domain/auth"
)

// ErrNotFound is returned by session and state stores when the requested
// record does not exist. Callers match it with errors.Is to tell absence
// apart from infrastructure failure.
var ErrNotFound = errors.New("not found")

// BeginInput carries inputs for initiating a federated auth flow.
type BeginInput struct {
	// State is the opaque one-time value the caller minted and persisted
	// before redirecting; the provider echoes it back on the callback.
	State string
	// Nonce binds the eventual id token to this flow.
	Nonce string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	Nonce string
}

// ProviderIdentity is the claim set a federated provider vouches for.
type ProviderIdentity struct {
	// Subject is the provider's stable identifier for the user.
	Subject     string
	Username    string
	DisplayName string
	Email       string
	Groups      []string
}

// AuthProvider initiates and completes an authentication flow against an
// upstream identity provider.
type AuthProvider interface {
	// ID returns the configured provider identifier.
	ID() string

	// Begin returns the provider authorization URL for the given state
	// and nonce.
	Begin(ctx context.Context, in BeginInput) (authURL string, err error)

	// Exchange redeems the callback code, verifies the returned token
	// against the nonce, and returns the asserted identity.
	Exchange(ctx context.Context, in ExchangeInput) (ProviderIdentity, error)
}

// ProviderRegistry resolves configured federated providers by id.
type ProviderRegistry interface {
	Provider(id string) (AuthProvider, bool)
	IDs() []string
}

// SessionStore persists and retrieves gateway sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// StateStore persists one-time login state tokens. Consume must be
// atomic: concurrent consumers of the same token see at most one success.
type StateStore interface {
	// Put stores the payload under token for at most ttl.
	Put(ctx context.Context, token string, payload []byte, ttl time.Duration) error
	// Consume returns the payload and removes the token in one step.
	// A missing or already-consumed token returns ErrNotFound.
	Consume(ctx context.Context, token string) ([]byte, error)
}

// AttemptRegulator throttles repeated authentication failures per subject
// (a username or client address).
type AttemptRegulator interface {
	// Allowed reports whether the subject may attempt authentication.
	Allowed(ctx context.Context, subject string) (bool, error)
	// RecordFailure counts a failed attempt and reports whether the
	// subject is now banned.
	RecordFailure(ctx context.Context, subject string) (banned bool, err error)
	// Reset clears the subject's failure count after a success.
	Reset(ctx context.Context, subject string) error
}

// IdentityRepo stores local and federated identities.
type IdentityRepo interface {
	FindByUsername(ctx context.Context, username string) (domainauth.Identity, error)
	FindByID(ctx context.Context, id string) (domainauth.Identity, error)
	Create(ctx context.Context, identity domainauth.Identity) (domainauth.Identity, error)
	// FindOrCreateByLink resolves the identity linked to a provider
	// subject, provisioning both identity and link atomically when the
	// pair is new. Concurrent first logins converge on one identity.
	FindOrCreateByLink(ctx context.Context, link domainauth.FederatedLink, identity domainauth.Identity) (domainauth.Identity, error)
	// UpdateProfile refreshes the mutable claim-derived fields.
	UpdateProfile(ctx context.Context, identity domainauth.Identity) error
	// SetPasswordHash replaces the stored digest, used when a verify
	// succeeds against outdated hashing parameters.
	SetPasswordHash(ctx context.Context, id, hash string) error
}

// PasswordHasher verifies and produces password digests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify compares in constant time and reports whether the stored
	// digest should be re-hashed under current parameters.
	Verify(password, encoded string) (ok bool, needsRehash bool, err error)
}

// SecondFactorVerifier checks a time-based one-time code.
type SecondFactorVerifier interface {
	VerifyCode(secret []byte, code string, at time.Time) (bool, error)
}
