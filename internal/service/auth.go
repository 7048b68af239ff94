package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/target/extranet-gate/internal/data"
	domainauth "github.com/target/extranet-gate/internal/domain/auth"
	apperrors "github.com/target/extranet-gate/internal/errors"
	"github.com/target/extranet-gate/internal/ports"
)

// AuthConfig holds the session and flow lifetimes the AuthService applies.
type AuthConfig struct {
	// SessionLifetime is the absolute bound for a standard session.
	SessionLifetime time.Duration
	// RememberMeLifetime is the absolute bound for remember-me sessions.
	RememberMeLifetime time.Duration
	// InactivityWindow expires sessions idle longer than this; zero disables.
	InactivityWindow time.Duration
	// StateTTL bounds how long a federated login may stay in flight.
	StateTTL time.Duration
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Sessions     ports.SessionStore
	States       ports.StateStore
	Identities   ports.IdentityRepo
	Providers    ports.ProviderRegistry
	Regulator    ports.AttemptRegulator
	Hasher       ports.PasswordHasher
	SecondFactor ports.SecondFactorVerifier
	Config       AuthConfig
	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// AuthService orchestrates local and federated authentication, session
// lifecycle, and the second-factor step.
type AuthService struct {
	sessions     ports.SessionStore
	states       ports.StateStore
	identities   ports.IdentityRepo
	providers    ports.ProviderRegistry
	regulator    ports.AttemptRegulator
	hasher       ports.PasswordHasher
	secondFactor ports.SecondFactorVerifier
	cfg          AuthConfig
	now          func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		sessions:     opts.Sessions,
		states:       opts.States,
		identities:   opts.Identities,
		providers:    opts.Providers,
		regulator:    opts.Regulator,
		hasher:       opts.Hasher,
		secondFactor: opts.SecondFactor,
		cfg:          opts.Config,
		now:          now,
	}
}

// LocalLoginInput groups parameters for a username/password login.
type LocalLoginInput struct {
	Username   string
	Password   string
	RememberMe bool
}

// VerifyLocal authenticates a username/password pair and creates a session.
// Failures are reported with one generic invalid-credentials error so the
// response never reveals whether the username or the password was wrong.
func (s *AuthService) VerifyLocal(ctx context.Context, input LocalLoginInput) (domainauth.Session, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if username == "" || input.Password == "" {
		return domainauth.Session{}, apperrors.Validation("username and password are required")
	}

	allowed, err := s.regulator.Allowed(ctx, username)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("check attempt regulation: %w", err)
	}
	if !allowed {
		return domainauth.Session{}, apperrors.TooManyAttempts()
	}

	identity, err := s.identities.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, data.ErrIdentityNotFound) {
			return domainauth.Session{}, s.failAttempt(ctx, username)
		}
		return domainauth.Session{}, fmt.Errorf("find identity: %w", err)
	}
	if identity.Disabled || identity.PasswordHash == "" {
		return domainauth.Session{}, s.failAttempt(ctx, username)
	}

	ok, needsRehash, err := s.hasher.Verify(input.Password, identity.PasswordHash)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return domainauth.Session{}, s.failAttempt(ctx, username)
	}

	if needsRehash {
		// Best effort: the login already succeeded, a failed upgrade just
		// leaves the old digest in place until the next login.
		if hash, hashErr := s.hasher.Hash(input.Password); hashErr == nil {
			_ = s.identities.SetPasswordHash(ctx, identity.ID, hash)
		}
	}

	if err := s.regulator.Reset(ctx, username); err != nil {
		return domainauth.Session{}, fmt.Errorf("reset attempt regulation: %w", err)
	}

	return s.createSession(ctx, identity, domainauth.MethodLocal, "", input.RememberMe)
}

// failAttempt counts a failed login and returns the generic credential error.
func (s *AuthService) failAttempt(ctx context.Context, subject string) error {
	if _, err := s.regulator.RecordFailure(ctx, subject); err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	return apperrors.InvalidCredentials()
}

// loginState is the server-side payload bound to a federated state token.
type loginState struct {
	ProviderID string `json:"provider_id"`
	Nonce      string `json:"nonce"`
	ReturnURL  string `json:"return_url,omitempty"`
}

// BeginFederated starts a federated login: it mints a one-time state and
// nonce, persists them server-side, and returns the provider's
// authorization URL to redirect the browser to.
func (s *AuthService) BeginFederated(ctx context.Context, providerID, returnURL string) (string, error) {
	provider, ok := s.providers.Provider(providerID)
	if !ok {
		return "", apperrors.Newf(apperrors.ErrCodeNotFound, "unknown auth provider %q", providerID)
	}

	state, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	payload, err := json.Marshal(loginState{
		ProviderID: providerID,
		Nonce:      nonce,
		ReturnURL:  returnURL,
	})
	if err != nil {
		return "", fmt.Errorf("marshal login state: %w", err)
	}
	if err := s.states.Put(ctx, state, payload, s.cfg.StateTTL); err != nil {
		return "", fmt.Errorf("persist login state: %w", err)
	}

	authURL, err := provider.Begin(ctx, ports.BeginInput{State: state, Nonce: nonce})
	if err != nil {
		return "", apperrors.Federation("begin federated login", err)
	}
	return authURL, nil
}

// CompleteFederatedInput groups the callback parameters.
type CompleteFederatedInput struct {
	ProviderID string
	Code       string
	State      string
}

// CompleteFederatedResult is the outcome of a federated callback.
type CompleteFederatedResult struct {
	Session domainauth.Session
	// ReturnURL is the post-login destination captured at Begin time. It
	// still needs allow-list validation before use in a redirect.
	ReturnURL string
}

// CompleteFederated finishes a federated login: it consumes the one-time
// state, redeems the code against the provider, provisions or resolves the
// linked identity, and creates a session. Any failure in the exchange is
// reported as a federation error; nothing from the provider is trusted
// until the id token verifies.
func (s *AuthService) CompleteFederated(ctx context.Context, input CompleteFederatedInput) (*CompleteFederatedResult, error) {
	if input.Code == "" || input.State == "" {
		return nil, apperrors.Validation("code and state are required")
	}

	payload, err := s.states.Consume(ctx, input.State)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, apperrors.Federation("login state is missing, expired, or already used", err)
		}
		return nil, fmt.Errorf("consume login state: %w", err)
	}

	var st loginState
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, apperrors.Federation("decode login state", err)
	}
	if st.ProviderID != input.ProviderID {
		return nil, apperrors.Federation("login state was issued for a different provider", nil)
	}

	provider, ok := s.providers.Provider(input.ProviderID)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeNotFound, "unknown auth provider %q", input.ProviderID)
	}

	asserted, err := provider.Exchange(ctx, ports.ExchangeInput{Code: input.Code, Nonce: st.Nonce})
	if err != nil {
		return nil, apperrors.Federation("exchange authorization code", err)
	}

	identity, err := s.identities.FindOrCreateByLink(ctx,
		domainauth.FederatedLink{ProviderID: input.ProviderID, ExternalSubject: asserted.Subject},
		domainauth.Identity{
			Username:    strings.ToLower(asserted.Username),
			DisplayName: asserted.DisplayName,
			Email:       asserted.Email,
			Groups:      asserted.Groups,
		},
	)
	if err != nil {
		if errors.Is(err, data.ErrUsernameExists) {
			// The asserted username belongs to an unrelated account; the
			// provider does not get to select it.
			return nil, apperrors.Federation("asserted username belongs to a different account", err)
		}
		return nil, fmt.Errorf("resolve federated identity: %w", err)
	}
	if identity.Disabled {
		return nil, apperrors.Federation("identity is disabled", nil)
	}

	// Claims drive the profile of provider-managed identities: refresh it
	// so group changes at the provider take effect on the next login.
	// Identities with a local credential keep their locally assigned
	// profile and groups.
	if identity.PasswordHash == "" {
		identity.DisplayName = asserted.DisplayName
		identity.Email = asserted.Email
		identity.Groups = asserted.Groups
		if err := s.identities.UpdateProfile(ctx, identity); err != nil {
			return nil, fmt.Errorf("refresh identity profile: %w", err)
		}
	}

	session, err := s.createSession(ctx, identity, domainauth.MethodFederated, input.ProviderID, false)
	if err != nil {
		return nil, err
	}
	return &CompleteFederatedResult{Session: session, ReturnURL: st.ReturnURL}, nil
}

// ValidateSession resolves a session id, enforces the absolute and idle
// deadlines, and refreshes last-activity. Expired sessions are removed.
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (domainauth.Session, error) {
	if sessionID == "" {
		return domainauth.Session{}, apperrors.SessionNotFound()
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return domainauth.Session{}, apperrors.SessionNotFound()
		}
		return domainauth.Session{}, fmt.Errorf("get session: %w", err)
	}

	now := s.now()
	if session.ExpiredAt(now, s.cfg.InactivityWindow) {
		if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
			return domainauth.Session{}, apperrors.Wrap(delErr, apperrors.ErrCodeSessionExpired, "session expired")
		}
		return domainauth.Session{}, apperrors.SessionExpired()
	}

	// Last-writer-wins: concurrent refreshes of the same session are fine.
	session.LastActivity = now
	if err := s.sessions.Save(ctx, session); err != nil {
		return domainauth.Session{}, fmt.Errorf("refresh session activity: %w", err)
	}
	return session, nil
}

// CompleteSecondFactor verifies a time-based one-time code for the session's
// identity and marks the session as second-factor complete.
func (s *AuthService) CompleteSecondFactor(ctx context.Context, sessionID, code string) (domainauth.Session, error) {
	session, err := s.ValidateSession(ctx, sessionID)
	if err != nil {
		return domainauth.Session{}, err
	}
	if session.SecondFactor {
		return session, nil
	}

	identity, err := s.identities.FindByID(ctx, session.IdentityID)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("find identity: %w", err)
	}
	if len(identity.TOTPSecret) == 0 {
		return domainauth.Session{}, apperrors.Validation("second factor is not enrolled")
	}

	subject := "2fa:" + session.Username
	allowed, err := s.regulator.Allowed(ctx, subject)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("check attempt regulation: %w", err)
	}
	if !allowed {
		return domainauth.Session{}, apperrors.TooManyAttempts()
	}

	ok, err := s.secondFactor.VerifyCode(identity.TOTPSecret, code, s.now())
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("verify code: %w", err)
	}
	if !ok {
		if _, regErr := s.regulator.RecordFailure(ctx, subject); regErr != nil {
			return domainauth.Session{}, fmt.Errorf("record failed attempt: %w", regErr)
		}
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeInvalidCredentials, "invalid verification code")
	}

	if err := s.regulator.Reset(ctx, subject); err != nil {
		return domainauth.Session{}, fmt.Errorf("reset attempt regulation: %w", err)
	}

	session.SecondFactor = true
	if err := s.sessions.Save(ctx, session); err != nil {
		return domainauth.Session{}, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// Logout removes a session. Unknown or already-removed sessions are not
// errors; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, ports.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ProviderIDs lists the configured federated providers in registration order.
func (s *AuthService) ProviderIDs() []string {
	return s.providers.IDs()
}

// createSession builds and persists a session for the identity.
func (s *AuthService) createSession(
	ctx context.Context,
	identity domainauth.Identity,
	method domainauth.AuthMethod,
	providerID string,
	rememberMe bool,
) (domainauth.Session, error) {
	id, err := randomToken()
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("generate session id: %w", err)
	}

	lifetime := s.cfg.SessionLifetime
	if rememberMe && s.cfg.RememberMeLifetime > 0 {
		lifetime = s.cfg.RememberMeLifetime
	}

	now := s.now()
	session := domainauth.Session{
		ID:           id,
		IdentityID:   identity.ID,
		Username:     identity.Username,
		DisplayName:  identity.DisplayName,
		Email:        identity.Email,
		Groups:       identity.Groups,
		Method:       method,
		ProviderID:   providerID,
		RememberMe:   rememberMe,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(lifetime),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domainauth.Session{}, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// randomToken returns a 32-byte URL-safe random token. Used for session
// ids and federated state/nonce values.
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
