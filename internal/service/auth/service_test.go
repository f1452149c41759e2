package auth

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	err error
}

func (p *stubProvider) ValidateCredentials(_ context.Context, creds Credentials) error {
	if p.err != nil {
		return p.err
	}
	if creds.Username == "admin@example.com" && creds.Password == "correct-horse-battery!" {
		return nil
	}
	return errors.New("invalid credentials")
}

func (p *stubProvider) GetRequirements() CredentialRequirements {
	return CredentialRequirements{MinPasswordLength: 12, WeakPasswords: []string{"password"}}
}

func (p *stubProvider) Name() string { return "stub" }

func TestValidateCredentials(t *testing.T) {
	svc := NewAuthService(&stubProvider{}, nil)

	good := Credentials{Username: "admin@example.com", Password: "correct-horse-battery!"}
	if err := svc.ValidateCredentials(context.Background(), good); err != nil {
		t.Fatalf("valid credentials rejected: %v", err)
	}

	bad := Credentials{Username: "admin@example.com", Password: "wrong"}
	if err := svc.ValidateCredentials(context.Background(), bad); err == nil {
		t.Fatal("invalid credentials accepted")
	}
}

func TestValidateCredentials_ProviderErrorPropagates(t *testing.T) {
	wantErr := errors.New("provider down")
	svc := NewAuthService(&stubProvider{err: wantErr}, nil)

	if err := svc.ValidateCredentials(context.Background(), Credentials{}); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want the provider's error", err)
	}
}

func TestIsPublicEndpoint(t *testing.T) {
	svc := NewAuthService(&stubProvider{}, []string{"/health", "/swagger/", "/auth/token"})

	tests := []struct {
		path string
		want bool
	}{
		{"/health", true},
		{"/swagger/index.html", true},
		{"/auth/token", true},
		{"/signals", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := svc.IsPublicEndpoint(tt.path); got != tt.want {
			t.Errorf("IsPublicEndpoint(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestGetProvider(t *testing.T) {
	provider := &stubProvider{}
	if NewAuthService(provider, nil).GetProvider() != provider {
		t.Fatal("GetProvider must return the configured provider")
	}
}
