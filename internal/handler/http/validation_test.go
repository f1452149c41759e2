package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func validationHandler() http.Handler {
	return InputValidation()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so MaxBytesReader gets a chance to fire.
		if _, err := io.Copy(io.Discard, r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestInputValidation_NormalRequestPasses(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/signals", nil)
	req.Header.Set("Authorization", "Bearer token")

	validationHandler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestInputValidation_OversizedAuthHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/signals", nil)
	req.Header.Set("Authorization", "Bearer "+strings.Repeat("x", maxAuthHeaderBytes))

	validationHandler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestInputValidation_OversizedPath(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/signals/"+strings.Repeat("a", maxPathBytes), nil)

	validationHandler().ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestURITooLong {
		t.Fatalf("status = %d, want 414", rec.Code)
	}
}

func TestInputValidation_BodyCapEnforced(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/feedback", strings.NewReader(strings.Repeat("x", maxBodyBytes+1)))

	validationHandler().ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413 when the handler reads past the cap", rec.Code)
	}
}
