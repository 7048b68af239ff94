package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"time"
)

// AuthMethod records how a session was established.
type AuthMethod string

const (
	// MethodLocal means username/password against the local identity store.
	MethodLocal AuthMethod = "local"
	// MethodFederated means an upstream OIDC provider vouched for the user.
	MethodFederated AuthMethod = "federated"
)

// AuthLevel is the strength of authentication a session carries.
// Levels are ordered: a session at TwoFactor satisfies a OneFactor demand.
type AuthLevel int

const (
	// LevelNone is an unauthenticated or anonymous request.
	LevelNone AuthLevel = iota
	// LevelOneFactor is a session that completed primary authentication.
	LevelOneFactor
	// LevelTwoFactor is a session that also completed a second factor.
	LevelTwoFactor
)

// String returns the configuration-file spelling of the level.
func (l AuthLevel) String() string {
	switch l {
	case LevelOneFactor:
		return "one_factor"
	case LevelTwoFactor:
		return "two_factor"
	default:
		return "none"
	}
}

// Identity represents a principal known to the gateway, either a local
// account or one provisioned from a federated provider's claims.
type Identity struct {
	ID          string // stable internal identifier (uuid)
	Username    string
	DisplayName string
	Email       string
	Groups      []string
	// PasswordHash is the PHC-encoded argon2id digest for local accounts;
	// empty for purely federated identities.
	PasswordHash string
	// TOTPSecret is the raw shared secret for the second factor; empty
	// when the account has not enrolled one.
	TOTPSecret []byte
	Disabled   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FederatedLink ties an upstream provider subject to a local identity.
// The (ProviderID, ExternalSubject) pair is unique.
type FederatedLink struct {
	ID              string
	IdentityID      string
	ProviderID      string
	ExternalSubject string
	CreatedAt       time.Time
}

// Session is the server-side record kept for an authenticated browser.
// ID is an opaque random identifier; the cookie carries nothing else.
type Session struct {
	ID          string     `json:"id"`
	IdentityID  string     `json:"identity_id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	Groups      []string   `json:"groups"`
	Method      AuthMethod `json:"method"`
	// ProviderID names the federated provider for federated sessions.
	ProviderID string `json:"provider_id,omitempty"`
	// SecondFactor is true once the session completed its second factor.
	SecondFactor bool      `json:"second_factor"`
	RememberMe   bool      `json:"remember_me"`
	CreatedAt    time.Time `json:"created_at"`
	// LastActivity drives the inactivity window; it advances on each
	// successful validation.
	LastActivity time.Time `json:"last_activity"`
	// ExpiresAt is the absolute lifetime bound, fixed at creation.
	ExpiresAt time.Time `json:"expires_at"`
}

// Level returns the authentication level the session has reached.
func (s Session) Level() AuthLevel {
	if s.ID == "" {
		return LevelNone
	}
	if s.SecondFactor {
		return LevelTwoFactor
	}
	return LevelOneFactor
}

// IdleDeadline returns the moment the session goes stale for the given
// inactivity window. A zero window disables idle expiry.
func (s Session) IdleDeadline(window time.Duration) time.Time {
	if window <= 0 {
		return time.Time{}
	}
	return s.LastActivity.Add(window)
}

// ExpiredAt reports whether the session is past its absolute or idle
// deadline at the given instant.
func (s Session) ExpiredAt(now time.Time, idleWindow time.Duration) bool {
	if !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt) {
		return true
	}
	if d := s.IdleDeadline(idleWindow); !d.IsZero() && !now.Before(d) {
		return true
	}
	return false
}

// InGroup reports membership in the named group.
func (s Session) InGroup(group string) bool {
	for _, g := range s.Groups {
		if g == group {
			return true
		}
	}
	return false
}
