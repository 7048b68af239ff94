package ports_test

import (
	"testing"

	genmocks "github.com/target/extranet-gate/internal/mocks"
	mocks "github.com/target/extranet-gate/internal/mocks/auth"
	"github.com/target/extranet-gate/internal/ports"
)

// This test only verifies that our test doubles conform to the ports at
// compile time.
func TestDoublesImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.SessionStore = (*mocks.MemorySessionStore)(nil)
	var _ ports.StateStore = (*mocks.MemoryStateStore)(nil)
	var _ ports.IdentityRepo = (*mocks.MemoryIdentityRepo)(nil)
	var _ ports.AttemptRegulator = (*mocks.MemoryRegulator)(nil)
	var _ ports.AuthProvider = (*mocks.StubProvider)(nil)
	var _ ports.ProviderRegistry = (*mocks.StubRegistry)(nil)
	var _ ports.PasswordHasher = (*mocks.PlainHasher)(nil)
	var _ ports.SecondFactorVerifier = (*mocks.StaticCodeVerifier)(nil)

	var _ ports.AuthProvider = (*genmocks.MockAuthProvider)(nil)
	var _ ports.ProviderRegistry = (*genmocks.MockProviderRegistry)(nil)
	var _ ports.SessionStore = (*genmocks.MockSessionStore)(nil)
	var _ ports.StateStore = (*genmocks.MockStateStore)(nil)
	var _ ports.AttemptRegulator = (*genmocks.MockAttemptRegulator)(nil)
	var _ ports.IdentityRepo = (*genmocks.MockIdentityRepo)(nil)
	var _ ports.PasswordHasher = (*genmocks.MockPasswordHasher)(nil)
	var _ ports.SecondFactorVerifier = (*genmocks.MockSecondFactorVerifier)(nil)
}
