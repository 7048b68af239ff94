package oidc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/extranet-gate/internal/ports"
)

type stubProvider struct {
	id string
}

func (s stubProvider) ID() string { return s.id }
func (s stubProvider) Begin(context.Context, ports.BeginInput) (string, error) {
	return "", nil
}
func (s stubProvider) Exchange(context.Context, ports.ExchangeInput) (ports.ProviderIdentity, error) {
	return ports.ProviderIdentity{}, nil
}

func TestRegistryLookup(t *testing.T) {
	reg, err := NewRegistry(stubProvider{id: "corp"}, stubProvider{id: "partner"})
	require.NoError(t, err)

	p, ok := reg.Provider("corp")
	require.True(t, ok)
	assert.Equal(t, "corp", p.ID())

	_, ok = reg.Provider("unknown")
	assert.False(t, ok)

	assert.Equal(t, []string{"corp", "partner"}, reg.IDs())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(stubProvider{id: "corp"}, stubProvider{id: "corp"})
	assert.Error(t, err)

	_, err = NewRegistry(stubProvider{id: ""})
	assert.Error(t, err)
}
