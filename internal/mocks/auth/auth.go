package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen; the
// generated gomock mocks in internal/mocks cover expectation-style tests.

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/target/extranet-gate/internal/data"
	domainauth "github.com/target/extranet-gate/internal/domain/auth"
	"github.com/target/extranet-gate/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SessionStore         = (*MemorySessionStore)(nil)
	_ ports.StateStore           = (*MemoryStateStore)(nil)
	_ ports.IdentityRepo         = (*MemoryIdentityRepo)(nil)
	_ ports.AttemptRegulator     = (*MemoryRegulator)(nil)
	_ ports.AuthProvider         = (*StubProvider)(nil)
	_ ports.ProviderRegistry     = (*StubRegistry)(nil)
	_ ports.PasswordHasher       = (*PlainHasher)(nil)
	_ ports.SecondFactorVerifier = (*StaticCodeVerifier)(nil)
)

// MemorySessionStore is an in-memory ports.SessionStore. It mirrors the
// redis adapter's contract, including the ports not-found sentinel.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates an empty MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ports.ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type stateEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStateStore is an in-memory ports.StateStore with atomic consume.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]stateEntry
}

// NewMemoryStateStore creates an empty MemoryStateStore.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]stateEntry)}
}

func (m *MemoryStateStore) Put(_ context.Context, token string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[token] = stateEntry{payload: payload, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryStateStore) Consume(_ context.Context, token string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.states[token]
	if !ok {
		return nil, ports.ErrNotFound
	}
	delete(m.states, token)
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, ports.ErrNotFound
	}
	return entry.payload, nil
}

// MemoryIdentityRepo is an in-memory ports.IdentityRepo keyed by username,
// with federated links keyed by (provider, subject).
type MemoryIdentityRepo struct {
	mu         sync.Mutex
	byID       map[string]domainauth.Identity
	byUsername map[string]string
	links      map[string]string // "provider\x00subject" -> identity id
}

// NewMemoryIdentityRepo creates an empty MemoryIdentityRepo.
func NewMemoryIdentityRepo() *MemoryIdentityRepo {
	return &MemoryIdentityRepo{
		byID:       make(map[string]domainauth.Identity),
		byUsername: make(map[string]string),
		links:      make(map[string]string),
	}
}

func linkKey(providerID, subject string) string {
	return providerID + "\x00" + subject
}

func (m *MemoryIdentityRepo) FindByUsername(_ context.Context, username string) (domainauth.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byUsername[username]
	if !ok {
		return domainauth.Identity{}, data.ErrIdentityNotFound
	}
	return m.byID[id], nil
}

func (m *MemoryIdentityRepo) FindByID(_ context.Context, id string) (domainauth.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.byID[id]
	if !ok {
		return domainauth.Identity{}, data.ErrIdentityNotFound
	}
	return identity, nil
}

func (m *MemoryIdentityRepo) Create(_ context.Context, identity domainauth.Identity) (domainauth.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byUsername[identity.Username]; exists {
		return domainauth.Identity{}, data.ErrUsernameExists
	}
	return m.insertLocked(identity), nil
}

func (m *MemoryIdentityRepo) insertLocked(identity domainauth.Identity) domainauth.Identity {
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	now := time.Now()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	m.byID[identity.ID] = identity
	m.byUsername[identity.Username] = identity.ID
	return identity
}

func (m *MemoryIdentityRepo) FindOrCreateByLink(
	_ context.Context,
	link domainauth.FederatedLink,
	identity domainauth.Identity,
) (domainauth.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.links[linkKey(link.ProviderID, link.ExternalSubject)]; ok {
		return m.byID[id], nil
	}

	// Never adopt an unrelated account by username.
	if _, exists := m.byUsername[identity.Username]; exists {
		return domainauth.Identity{}, data.ErrUsernameExists
	}
	created := m.insertLocked(identity)
	m.links[linkKey(link.ProviderID, link.ExternalSubject)] = created.ID
	return created, nil
}

func (m *MemoryIdentityRepo) UpdateProfile(_ context.Context, identity domainauth.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[identity.ID]
	if !ok {
		return data.ErrIdentityNotFound
	}
	stored.DisplayName = identity.DisplayName
	stored.Email = identity.Email
	stored.Groups = identity.Groups
	stored.UpdatedAt = time.Now()
	m.byID[identity.ID] = stored
	return nil
}

// SetTOTPSecret enrolls a second factor for an identity. Test setup only;
// this is not part of the port.
func (m *MemoryIdentityRepo) SetTOTPSecret(id string, secret []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[id]
	if !ok {
		return
	}
	stored.TOTPSecret = secret
	m.byID[id] = stored
}

func (m *MemoryIdentityRepo) SetPasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[id]
	if !ok {
		return data.ErrIdentityNotFound
	}
	stored.PasswordHash = hash
	m.byID[id] = stored
	return nil
}

// MemoryRegulator is an in-memory ports.AttemptRegulator with a fixed
// attempt threshold and no time window.
type MemoryRegulator struct {
	MaxAttempts int

	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryRegulator creates a regulator banning after maxAttempts failures.
func NewMemoryRegulator(maxAttempts int) *MemoryRegulator {
	return &MemoryRegulator{MaxAttempts: maxAttempts, counts: make(map[string]int)}
}

func (m *MemoryRegulator) Allowed(_ context.Context, subject string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[subject] < m.MaxAttempts, nil
}

func (m *MemoryRegulator) RecordFailure(_ context.Context, subject string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[subject]++
	return m.counts[subject] >= m.MaxAttempts, nil
}

func (m *MemoryRegulator) Reset(_ context.Context, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, subject)
	return nil
}

// Failures returns the recorded failure count for a subject.
func (m *MemoryRegulator) Failures(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[subject]
}

// StubProvider is a configurable ports.AuthProvider.
type StubProvider struct {
	ProviderID string
	AuthURL    string
	Identity   ports.ProviderIdentity

	BeginErr    error
	ExchangeErr error

	// LastBegin records the most recent Begin input for assertions.
	LastBegin ports.BeginInput
	// LastExchange records the most recent Exchange input.
	LastExchange ports.ExchangeInput
}

// NewStubProvider creates a StubProvider with a default identity.
func NewStubProvider(id string) *StubProvider {
	return &StubProvider{
		ProviderID: id,
		AuthURL:    "https://idp.example.com/authorize",
		Identity: ports.ProviderIdentity{
			Subject:     "subject-1",
			Username:    "alice",
			DisplayName: "Alice Example",
			Email:       "alice@example.com",
			Groups:      []string{"employees"},
		},
	}
}

func (p *StubProvider) ID() string { return p.ProviderID }

func (p *StubProvider) Begin(_ context.Context, in ports.BeginInput) (string, error) {
	p.LastBegin = in
	if p.BeginErr != nil {
		return "", p.BeginErr
	}
	return p.AuthURL + "?state=" + in.State, nil
}

func (p *StubProvider) Exchange(_ context.Context, in ports.ExchangeInput) (ports.ProviderIdentity, error) {
	p.LastExchange = in
	if p.ExchangeErr != nil {
		return ports.ProviderIdentity{}, p.ExchangeErr
	}
	return p.Identity, nil
}

// StubRegistry resolves stub providers by id.
type StubRegistry struct {
	providers map[string]ports.AuthProvider
	order     []string
}

// NewStubRegistry creates a registry over the given providers.
func NewStubRegistry(providers ...ports.AuthProvider) *StubRegistry {
	r := &StubRegistry{providers: make(map[string]ports.AuthProvider)}
	for _, p := range providers {
		r.providers[p.ID()] = p
		r.order = append(r.order, p.ID())
	}
	return r
}

func (r *StubRegistry) Provider(id string) (ports.AuthProvider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

func (r *StubRegistry) IDs() []string {
	return append([]string(nil), r.order...)
}

// PlainHasher is a transparent ports.PasswordHasher for tests: the "hash"
// is the password with a fixed prefix. NeedsRehash forces the rehash path.
type PlainHasher struct {
	NeedsRehash bool
}

const plainPrefix = "plain:"

func (h *PlainHasher) Hash(password string) (string, error) {
	return plainPrefix + password, nil
}

func (h *PlainHasher) Verify(password, encoded string) (bool, bool, error) {
	return encoded == plainPrefix+password, h.NeedsRehash, nil
}

// StaticCodeVerifier accepts exactly one configured code.
type StaticCodeVerifier struct {
	Code string
}

func (v *StaticCodeVerifier) VerifyCode(_ []byte, code string, _ time.Time) (bool, error) {
	return code == v.Code, nil
}
