package auth

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	authservice "newsbot/internal/service/auth"
)

const (
	testAdminPass = "Adm1n&Secure#2026pass"
	testDemoPass  = "V1ewer&Secure#2026pass"
)

func providerEnv(t *testing.T, demoConfigured bool) *MultiUserAuthProvider {
	t.Helper()
	t.Setenv("ADMIN_USER", "admin@example.com")
	t.Setenv("ADMIN_USER_PASSWORD", testAdminPass)
	if demoConfigured {
		t.Setenv("DEMO_USER", "demo@example.com")
		t.Setenv("DEMO_USER_PASSWORD", testDemoPass)
	} else {
		t.Setenv("DEMO_USER", "")
		t.Setenv("DEMO_USER_PASSWORD", "")
	}
	return NewMultiUserAuthProvider(12, []string{"password", "secret123"})
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		demo     bool
		username string
		password string
		wantErr  string // substring; empty means accepted
	}{
		{name: "admin pair accepted", demo: true, username: "admin@example.com", password: testAdminPass},
		{name: "viewer pair accepted", demo: true, username: "demo@example.com", password: testDemoPass},
		{name: "viewer rejected when unconfigured", demo: false, username: "demo@example.com", password: testDemoPass, wantErr: "invalid credentials"},
		{name: "crossed pair rejected", demo: true, username: "admin@example.com", password: testDemoPass, wantErr: "invalid credentials"},
		{name: "unknown user rejected", demo: true, username: "nobody@example.com", password: testAdminPass, wantErr: "invalid credentials"},
		{name: "empty username", demo: true, username: "", password: testAdminPass, wantErr: "must not be empty"},
		{name: "empty password", demo: true, username: "admin@example.com", password: "", wantErr: "must not be empty"},
		{name: "short password", demo: true, username: "admin@example.com", password: "short", wantErr: "at least 12 characters"},
		{name: "weak password prefix", demo: true, username: "admin@example.com", password: "password12345", wantErr: "weak password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := providerEnv(t, tt.demo)
			err := p.ValidateCredentials(context.Background(), authservice.Credentials{
				Username: tt.username, Password: tt.password,
			})
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("want accepted, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCredentials_EmptyEnvNeverMatchesEmptyInput(t *testing.T) {
	// With no credentials configured at all, an attacker posting empty
	// or arbitrary values must not slip through the constant-time
	// comparisons against empty strings.
	t.Setenv("ADMIN_USER", "")
	t.Setenv("ADMIN_USER_PASSWORD", "")
	t.Setenv("DEMO_USER", "")
	t.Setenv("DEMO_USER_PASSWORD", "")

	p := NewMultiUserAuthProvider(12, nil)
	err := p.ValidateCredentials(context.Background(), authservice.Credentials{
		Username: "x@example.com", Password: "whatever-long-enough",
	})
	if err == nil {
		t.Fatal("unconfigured provider accepted credentials")
	}
}

func TestIdentifyUser(t *testing.T) {
	tests := []struct {
		name     string
		demo     bool
		email    string
		wantRole string
		wantErr  bool
	}{
		{name: "admin email", demo: true, email: "admin@example.com", wantRole: RoleAdmin},
		{name: "viewer email", demo: true, email: "demo@example.com", wantRole: RoleViewer},
		{name: "viewer email unconfigured", demo: false, email: "demo@example.com", wantErr: true},
		{name: "unknown email", demo: true, email: "nobody@example.com", wantErr: true},
		{name: "empty email", demo: true, email: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := providerEnv(t, tt.demo)
			role, err := p.IdentifyUser(context.Background(), tt.email)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("want error, got role %q", role)
				}
				return
			}
			if err != nil || role != tt.wantRole {
				t.Fatalf("role=%q err=%v, want %q", role, err, tt.wantRole)
			}
		})
	}
}

func TestGetRequirementsAndName(t *testing.T) {
	p := NewMultiUserAuthProvider(12, []string{"password"})
	req := p.GetRequirements()
	if req.MinPasswordLength != 12 || len(req.WeakPasswords) != 1 {
		t.Fatalf("requirements = %+v", req)
	}
	if p.Name() != "multi-user" {
		t.Fatalf("name = %q", p.Name())
	}
}

func TestValidateViewerCredentials(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(bytes.NewBuffer(nil), nil))

	tests := []struct {
		name    string
		user    string
		pass    string
		wantErr bool
	}{
		{name: "absent pair is admin-only mode", user: "", pass: ""},
		{name: "complete pair", user: "demo@example.com", pass: testDemoPass},
		{name: "password without user", user: "", pass: testDemoPass, wantErr: true},
		{name: "user without password", user: "demo@example.com", pass: "", wantErr: true},
		{name: "short password", user: "demo@example.com", pass: "short", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEMO_USER", tt.user)
			t.Setenv("DEMO_USER_PASSWORD", tt.pass)
			err := ValidateViewerCredentials(logger)
			if tt.wantErr && err == nil {
				t.Fatal("want error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("want nil, got %v", err)
			}
		})
	}
}
