package http

import (
	"net/http"
)

// Input size ceilings. JWTs run well under 1 KB, signal/briefing paths
// are short, and no endpoint accepts a large upload.
const (
	maxAuthHeaderBytes = 8192
	maxPathBytes       = 2048
	maxBodyBytes       = 10 << 20
)

// InputValidation rejects oversized authorization headers and paths
// before any handler runs, and caps the request body so a hostile
// payload cannot exhaust memory.
func InputValidation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.Header.Get("Authorization")) > maxAuthHeaderBytes {
				writeJSONError(w, http.StatusBadRequest, "authorization header too large")
				return
			}
			if len(r.URL.Path) > maxPathBytes {
				writeJSONError(w, http.StatusRequestURITooLong, "URI too long")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
