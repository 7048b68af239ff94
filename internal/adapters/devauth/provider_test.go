package devauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/extranet-gate/internal/ports"
)

func TestNewProviderValidation(t *testing.T) {
	_, err := NewProvider(Config{})
	assert.Error(t, err)

	_, err = NewProvider(Config{ID: "dev", Username: "alice"})
	assert.Error(t, err)

	p, err := NewProvider(Config{ID: "dev", Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "dev", p.ID())
}

func TestBeginLoopsBackToCallback(t *testing.T) {
	p, err := NewProvider(Config{ID: "dev", Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	authURL, err := p.Begin(context.Background(), ports.BeginInput{State: "s1", Nonce: "n1"})
	require.NoError(t, err)
	assert.Equal(t, "/auth/oidc/dev/callback?code=dev&state=s1", authURL)

	_, err = p.Begin(context.Background(), ports.BeginInput{Nonce: "n1"})
	assert.Error(t, err)
}

func TestExchangeReturnsConfiguredIdentity(t *testing.T) {
	p, err := NewProvider(Config{
		ID:          "dev",
		Username:    "alice",
		DisplayName: "Alice Example",
		Email:       "alice@example.com",
		Groups:      []string{"employees"},
	})
	require.NoError(t, err)

	identity, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "dev"})
	require.NoError(t, err)
	assert.Equal(t, "dev:alice", identity.Subject)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, []string{"employees"}, identity.Groups)
}
