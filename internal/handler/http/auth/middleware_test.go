package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "middleware-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "user@example.com",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func authzRequest(t *testing.T, method, path, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)

	handler := Authz(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthz_PublicEndpointSkipsAuth(t *testing.T) {
	if rec := authzRequest(t, "GET", "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 without a token on /health", rec.Code)
	}
}

func TestAuthz_ProtectedEndpointRequiresToken(t *testing.T) {
	// GET is protected like every other method; list endpoints must not
	// be publicly readable.
	if rec := authzRequest(t, "GET", "/signals", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for tokenless GET", rec.Code)
	}
}

func TestAuthz_ValidAdminToken(t *testing.T) {
	token := signToken(t, testSecret, validClaims(RoleAdmin))
	if rec := authzRequest(t, "DELETE", "/sources/3", "Bearer "+token); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for admin delete", rec.Code)
	}
}

func TestAuthz_ViewerForbiddenFromWrites(t *testing.T) {
	token := signToken(t, testSecret, validClaims(RoleViewer))
	if rec := authzRequest(t, "POST", "/sources", "Bearer "+token); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for viewer write", rec.Code)
	}
}

func TestAuthz_RejectsBadTokens(t *testing.T) {
	tests := []struct {
		name          string
		authorization string
	}{
		{name: "missing bearer prefix", authorization: signToken(t, testSecret, validClaims(RoleAdmin))},
		{name: "wrong secret", authorization: "Bearer " + signToken(t, "other-secret", validClaims(RoleAdmin))},
		{name: "expired", authorization: "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"sub": "user@example.com", "role": RoleAdmin, "exp": time.Now().Add(-time.Hour).Unix(),
		})},
		{name: "missing role claim", authorization: "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"sub": "user@example.com", "exp": time.Now().Add(time.Hour).Unix(),
		})},
		{name: "missing sub claim", authorization: "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"role": RoleAdmin, "exp": time.Now().Add(time.Hour).Unix(),
		})},
		{name: "garbage", authorization: "Bearer not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := authzRequest(t, "GET", "/signals", tt.authorization); rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestAuthz_RejectsAlgNone(t *testing.T) {
	// A token signed with "none" must not validate even with a valid
	// payload shape.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims(RoleAdmin))
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	if rec := authzRequest(t, "GET", "/signals", "Bearer "+signed); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for alg=none token", rec.Code)
	}
}

func TestAuthz_SetsUserContext(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	var gotUser, gotRole string
	var gotOK, gotRoleOK bool
	handler := Authz(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotOK = UserFromContext(r.Context())
		gotRole, gotRoleOK = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/signals", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(RoleViewer)))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !gotOK || gotUser != "user@example.com" {
		t.Fatalf("UserFromContext = %q, %v; want authenticated email", gotUser, gotOK)
	}
	// The role rides along for the per-user rate limiter's tier lookup.
	if !gotRoleOK || gotRole != RoleViewer {
		t.Fatalf("RoleFromContext = %q, %v; want the token's role", gotRole, gotRoleOK)
	}
}

func BenchmarkAuthz_ValidToken(b *testing.B) {
	b.Setenv("JWT_SECRET", testSecret)
	claims := jwt.MapClaims{
		"sub": "user@example.com", "role": RoleAdmin,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		b.Fatalf("signing: %v", err)
	}

	handler := Authz(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/signals", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		handler.ServeHTTP(rec, req)
	}
}

func TestMetricsRecorders(t *testing.T) {
	// Smoke the promauto-registered recorders; a duplicate registration
	// or label mismatch would panic here.
	RecordAuthRequest(RoleAdmin, "success")
	RecordAuthRequest(RoleViewer, "failure")
	RecordAuthDuration(RoleAdmin, 0.004)
	RecordAuthzCheckDuration(0.0002)
	RecordForbiddenAttempt(RoleViewer, "POST")
}
