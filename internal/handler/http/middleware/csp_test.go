package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"newsbot/pkg/security/csp"
)

func cspServe(t *testing.T, m *CSPMiddleware, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func TestCSP_DefaultPolicyApplied(t *testing.T) {
	m := NewCSPMiddleware(CSPMiddlewareConfig{
		Enabled:       true,
		DefaultPolicy: csp.StrictPolicy(),
	})

	rec := cspServe(t, m, "/signals")
	header := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(header, "default-src 'none'") {
		t.Fatalf("CSP header = %q, want the strict default", header)
	}
}

func TestCSP_PathPolicyWinsOverDefault(t *testing.T) {
	m := NewCSPMiddleware(CSPMiddlewareConfig{
		Enabled:       true,
		DefaultPolicy: csp.StrictPolicy(),
		PathPolicies: map[string]*csp.CSPBuilder{
			"/swagger/": csp.SwaggerUIPolicy(),
		},
	})

	rec := cspServe(t, m, "/swagger/index.html")
	header := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(header, "'unsafe-inline'") {
		t.Fatalf("CSP header = %q, want the swagger policy on /swagger/", header)
	}

	rec = cspServe(t, m, "/signals")
	if header := rec.Header().Get("Content-Security-Policy"); strings.Contains(header, "'unsafe-inline'") {
		t.Fatalf("CSP header = %q, swagger allowances must not leak to the API", header)
	}
}

func TestCSP_LongestPrefixWins(t *testing.T) {
	loose := csp.NewCSPBuilder().DefaultSrc("'self'")
	tight := csp.NewCSPBuilder().DefaultSrc("'none'")
	m := NewCSPMiddleware(CSPMiddlewareConfig{
		Enabled: true,
		PathPolicies: map[string]*csp.CSPBuilder{
			"/docs/":     loose,
			"/docs/api/": tight,
		},
	})

	rec := cspServe(t, m, "/docs/api/spec.json")
	if header := rec.Header().Get("Content-Security-Policy"); header != "default-src 'none'" {
		t.Fatalf("CSP header = %q, want the more specific prefix's policy", header)
	}
}

func TestCSP_DisabledAndUnconfigured(t *testing.T) {
	disabled := NewCSPMiddleware(CSPMiddlewareConfig{Enabled: false, DefaultPolicy: csp.StrictPolicy()})
	if rec := cspServe(t, disabled, "/signals"); rec.Header().Get("Content-Security-Policy") != "" {
		t.Fatal("disabled middleware must not set CSP headers")
	}

	noPolicy := NewCSPMiddleware(CSPMiddlewareConfig{Enabled: true})
	rec := cspServe(t, noPolicy, "/signals")
	if rec.Header().Get("Content-Security-Policy") != "" {
		t.Fatal("middleware without a policy must not set CSP headers")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("request must still pass, status = %d", rec.Code)
	}
}

func TestCSP_ReportOnlyMode(t *testing.T) {
	m := NewCSPMiddleware(CSPMiddlewareConfig{
		Enabled:       true,
		DefaultPolicy: csp.StrictPolicy(),
		ReportOnly:    true,
	})

	rec := cspServe(t, m, "/signals")
	if rec.Header().Get("Content-Security-Policy") != "" {
		t.Fatal("report-only mode must not set the enforcing header")
	}
	if rec.Header().Get("Content-Security-Policy-Report-Only") == "" {
		t.Fatal("report-only mode must set the Report-Only header")
	}
}
