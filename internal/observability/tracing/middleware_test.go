package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveTraced(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	Middleware(handler).ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	return rec
}

func TestMiddleware_PassesRequestThrough(t *testing.T) {
	called := false
	rec := serveTraced(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}), "/signals")

	if !called {
		t.Fatal("wrapped handler never ran")
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want the handler's status preserved", rec.Code)
	}
}

func TestMiddleware_SetsTraceIDHeader(t *testing.T) {
	rec := serveTraced(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), "/signals")

	// With the no-op global tracer the span context is all zeros, but
	// the header must still be present and well-formed (32 hex chars).
	traceID := rec.Header().Get("X-Trace-Id")
	if len(traceID) != 32 {
		t.Fatalf("X-Trace-Id = %q, want a 32-char trace id", traceID)
	}
}

func TestMiddleware_DefaultStatusIs200(t *testing.T) {
	rec := serveTraced(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("implicit 200"))
	}), "/signals")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMiddleware_ServerErrorStillPropagates(t *testing.T) {
	rec := serveTraced(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), "/signals")

	// The 5xx is recorded on the span as an error attribute; here we can
	// only assert the response is untouched.
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}
