// Package mocks provides mock implementations for testing the gateway.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks
// for the auth ports. The mocks are generated with go:generate directives
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	sessions := mocks.NewMockSessionStore(ctrl)
//	sessions.EXPECT().Get(gomock.Any(), "sid").Return(sess, nil)
package mocks

// Generate mocks for every interface in internal/ports/auth.go:
// AuthProvider, ProviderRegistry, SessionStore, StateStore,
// AttemptRegulator, IdentityRepo, PasswordHasher, SecondFactorVerifier.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -source=../ports/auth.go -package=mocks -destination=auth_ports_mock.go
