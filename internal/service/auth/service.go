// Package auth holds the framework-agnostic authentication service the
// HTTP token endpoint delegates to.
package auth

import (
	"context"
	"strings"
)

// Credentials is a username/password pair.
type Credentials struct {
	Username string
	Password string
}

// CredentialRequirements is the password policy a provider enforces.
type CredentialRequirements struct {
	MinPasswordLength int
	WeakPasswords     []string
}

// AuthProvider validates credentials. Implemented by the env-var-backed
// multi-user provider in the HTTP layer.
type AuthProvider interface {
	ValidateCredentials(ctx context.Context, creds Credentials) error
	GetRequirements() CredentialRequirements
	Name() string
}

// AuthService pairs a provider with the public-endpoint list.
type AuthService struct {
	provider        AuthProvider
	publicEndpoints []string
}

// NewAuthService builds the service.
func NewAuthService(provider AuthProvider, publicEndpoints []string) *AuthService {
	return &AuthService{provider: provider, publicEndpoints: publicEndpoints}
}

// ValidateCredentials delegates to the provider.
func (s *AuthService) ValidateCredentials(ctx context.Context, creds Credentials) error {
	return s.provider.ValidateCredentials(ctx, creds)
}

// IsPublicEndpoint reports whether path is under a configured public
// prefix.
func (s *AuthService) IsPublicEndpoint(path string) bool {
	for _, endpoint := range s.publicEndpoints {
		if strings.HasPrefix(path, endpoint) {
			return true
		}
	}
	return false
}

// GetProvider exposes the configured provider.
func (s *AuthService) GetProvider() AuthProvider {
	return s.provider
}
