package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeout_FastHandlerPassesThrough(t *testing.T) {
	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("done"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/signals", nil))

	if rec.Code != http.StatusAccepted || rec.Body.String() != "done" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestTimeout_SlowHandlerGets504(t *testing.T) {
	release := make(chan struct{})
	handler := Timeout(20*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("too late"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/signals", nil))
	close(release)

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}
	if body := rec.Body.String(); body != `{"error":"request timeout"}` {
		t.Fatalf("body = %q", body)
	}
}

func TestTimeout_HandlerSeesCanceledContext(t *testing.T) {
	observed := make(chan error, 1)
	handler := Timeout(20*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		observed <- r.Context().Err()
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/signals", nil))

	select {
	case err := <-observed:
		if err == nil {
			t.Fatal("handler should observe a canceled context")
		}
	case <-time.After(time.Second):
		t.Fatal("handler never observed cancellation")
	}
}

func TestTimeout_LateWriteIsDropped(t *testing.T) {
	wrote := make(chan error, 1)
	handler := Timeout(20*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		_, err := w.Write([]byte("late"))
		wrote <- err
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/signals", nil))

	select {
	case err := <-wrote:
		if err != http.ErrHandlerTimeout {
			t.Fatalf("late write err = %v, want ErrHandlerTimeout", err)
		}
	case <-time.After(time.Second):
		t.Fatal("handler write never completed")
	}
	if rec.Body.String() != `{"error":"request timeout"}` {
		t.Fatalf("timeout response corrupted by late write: %q", rec.Body.String())
	}
}
