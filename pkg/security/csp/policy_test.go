package csp

import (
	"strings"
	"testing"
)

func TestBuild_OrderIsStable(t *testing.T) {
	// Directives set in any order render in the fixed canonical order.
	policy := NewCSPBuilder().
		ObjectSrc("'none'").
		ScriptSrc("'self'").
		DefaultSrc("'self'").
		Build()

	want := "default-src 'self'; script-src 'self'; object-src 'none'"
	if policy != want {
		t.Fatalf("policy = %q, want %q", policy, want)
	}
}

func TestBuild_EmptyBuilder(t *testing.T) {
	if got := NewCSPBuilder().Build(); got != "" {
		t.Fatalf("empty builder should render empty, got %q", got)
	}
}

func TestBuild_MultipleSources(t *testing.T) {
	policy := NewCSPBuilder().ScriptSrc("'self'", "https://cdn.example.com").Build()
	if policy != "script-src 'self' https://cdn.example.com" {
		t.Fatalf("policy = %q", policy)
	}
}

func TestBuild_LastSetWins(t *testing.T) {
	policy := NewCSPBuilder().DefaultSrc("'none'").DefaultSrc("'self'").Build()
	if policy != "default-src 'self'" {
		t.Fatalf("policy = %q, want later call to replace earlier", policy)
	}
}

func TestBuild_ReportUri(t *testing.T) {
	policy := NewCSPBuilder().DefaultSrc("'self'").ReportUri("/csp-report").Build()
	if !strings.HasSuffix(policy, "report-uri /csp-report") {
		t.Fatalf("policy = %q, want trailing report-uri", policy)
	}
}

func TestHeaderName(t *testing.T) {
	if got := NewCSPBuilder().HeaderName(); got != "Content-Security-Policy" {
		t.Fatalf("enforcement header = %q", got)
	}
	if got := NewCSPBuilder().ReportOnly(true).HeaderName(); got != "Content-Security-Policy-Report-Only" {
		t.Fatalf("report-only header = %q", got)
	}
}

func TestStrictPolicy(t *testing.T) {
	policy := StrictPolicy().Build()

	for _, want := range []string{"default-src 'none'", "frame-ancestors 'none'", "connect-src 'self'"} {
		if !strings.Contains(policy, want) {
			t.Errorf("strict policy missing %q: %s", want, policy)
		}
	}
	for _, forbidden := range []string{"unsafe-inline", "unsafe-eval"} {
		if strings.Contains(policy, forbidden) {
			t.Errorf("strict policy must not contain %q: %s", forbidden, policy)
		}
	}
}

func TestSwaggerUIPolicy(t *testing.T) {
	policy := SwaggerUIPolicy().Build()

	for _, want := range []string{
		"script-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net",
		"connect-src 'self' blob:",
		"frame-ancestors 'none'",
		"object-src 'none'",
	} {
		if !strings.Contains(policy, want) {
			t.Errorf("swagger policy missing %q: %s", want, policy)
		}
	}
	if strings.Contains(policy, "unsafe-eval") {
		t.Errorf("swagger policy must not allow eval: %s", policy)
	}
}

func TestRelaxedPolicy(t *testing.T) {
	policy := RelaxedPolicy().Build()
	if !strings.Contains(policy, "'unsafe-eval'") {
		t.Errorf("relaxed policy should allow eval for dev tooling: %s", policy)
	}
	if !strings.Contains(policy, "default-src 'self'") {
		t.Errorf("relaxed policy still scopes default-src to self: %s", policy)
	}
}
