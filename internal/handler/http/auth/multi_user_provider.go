package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"os"
	"strings"

	authservice "newsbot/internal/service/auth"
)

// MultiUserAuthProvider authenticates against the two env-var credential
// pairs the service knows: ADMIN_USER/ADMIN_USER_PASSWORD (role admin)
// and the optional DEMO_USER/DEMO_USER_PASSWORD (role viewer). Every
// comparison is constant-time, and all comparisons run before any result
// is evaluated, so response timing does not reveal which credential
// component was wrong or whether a viewer account exists.
type MultiUserAuthProvider struct {
	minPasswordLength int
	weakPasswords     []string
}

// NewMultiUserAuthProvider builds the provider with its password policy.
func NewMultiUserAuthProvider(minPasswordLength int, weakPasswords []string) *MultiUserAuthProvider {
	return &MultiUserAuthProvider{
		minPasswordLength: minPasswordLength,
		weakPasswords:     weakPasswords,
	}
}

// ValidateCredentials accepts the admin pair or, when configured, the
// viewer pair.
func (p *MultiUserAuthProvider) ValidateCredentials(_ context.Context, creds authservice.Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("credentials must not be empty")
	}
	if len(creds.Password) < p.minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", p.minPasswordLength)
	}
	for _, weak := range p.weakPasswords {
		if creds.Password == weak || strings.HasPrefix(creds.Password, weak) {
			return fmt.Errorf("weak password detected")
		}
	}

	adminUser := os.Getenv("ADMIN_USER")
	adminPass := os.Getenv("ADMIN_USER_PASSWORD")
	demoUser := os.Getenv("DEMO_USER")
	demoPass := os.Getenv("DEMO_USER_PASSWORD")

	adminUserMatch := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(adminUser)) == 1
	adminPassMatch := subtle.ConstantTimeCompare([]byte(creds.Password), []byte(adminPass)) == 1

	// The viewer comparisons run even when no viewer is configured, so
	// the unconfigured case costs the same time as a mismatch.
	demoUserMatch := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(demoUser)) == 1
	demoPassMatch := subtle.ConstantTimeCompare([]byte(creds.Password), []byte(demoPass)) == 1
	if demoUser == "" {
		demoUserMatch, demoPassMatch = false, false
	}

	if adminUserMatch && adminPassMatch {
		return nil
	}
	if demoUserMatch && demoPassMatch {
		return nil
	}
	return fmt.Errorf("invalid credentials")
}

// IdentifyUser maps an authenticated email to its role, for the token
// endpoint's role claim.
func (p *MultiUserAuthProvider) IdentifyUser(_ context.Context, email string) (string, error) {
	if email == "" {
		return "", fmt.Errorf("email must not be empty")
	}

	adminUser := os.Getenv("ADMIN_USER")
	demoUser := os.Getenv("DEMO_USER")

	adminMatch := subtle.ConstantTimeCompare([]byte(email), []byte(adminUser)) == 1
	demoMatch := subtle.ConstantTimeCompare([]byte(email), []byte(demoUser)) == 1
	if demoUser == "" {
		demoMatch = false
	}

	if adminMatch {
		return RoleAdmin, nil
	}
	if demoMatch {
		return RoleViewer, nil
	}
	return "", fmt.Errorf("user not found")
}

// GetRequirements returns the password policy.
func (p *MultiUserAuthProvider) GetRequirements() authservice.CredentialRequirements {
	return authservice.CredentialRequirements{
		MinPasswordLength: p.minPasswordLength,
		WeakPasswords:     p.weakPasswords,
	}
}

// Name returns the provider name.
func (p *MultiUserAuthProvider) Name() string {
	return "multi-user"
}

// ValidateViewerCredentials checks the optional viewer credential pair at
// startup. Unlike the admin check this degrades gracefully: a missing
// pair is fine (admin-only mode), and a misconfigured one logs a warning
// and returns the error, but the caller keeps the service running with
// the viewer role effectively disabled.
func ValidateViewerCredentials(logger *slog.Logger) error {
	user := os.Getenv("DEMO_USER")
	pass := os.Getenv("DEMO_USER_PASSWORD")

	if user == "" && pass == "" {
		return nil
	}

	var err error
	switch {
	case user == "":
		err = fmt.Errorf("viewer credentials validation failed: DEMO_USER_PASSWORD is set but DEMO_USER is empty")
	case pass == "":
		err = fmt.Errorf("viewer credentials validation failed: DEMO_USER is set but DEMO_USER_PASSWORD is empty")
	case len(pass) < minPasswordLength:
		err = fmt.Errorf("viewer credentials validation failed: DEMO_USER_PASSWORD must be at least %d characters (current length: %d)", minPasswordLength, len(pass))
	}
	if err != nil {
		logger.Warn("viewer role disabled, continuing in admin-only mode", slog.Any("error", err))
		return err
	}
	return nil
}
